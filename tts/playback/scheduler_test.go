package playback

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines/mock"
	"github.com/dgnsrekt/readaloud/tts/wakelock"
)

var article = []string{
	"First sentence. Second sentence.",
	"Third sentence.",
}

var longArticle = []string{
	"Alpha one. Alpha two.",
	"Bravo one.",
	"Charlie one. Charlie two.",
}

// recorder collects notifications.
type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recorder) notify(msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.msgs...)
}

func messages[T any](r *recorder) []T {
	var out []T
	for _, msg := range r.all() {
		if m, ok := msg.(T); ok {
			out = append(out, m)
		}
	}
	return out
}

// fakeLock counts wake lock acquisitions.
type fakeLock struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (f *fakeLock) Acquire(string) (tts.WakeHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	return fakeHandle{f}, nil
}

func (f *fakeLock) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired, f.released
}

type fakeHandle struct {
	lock *fakeLock
}

func (h fakeHandle) Release() error {
	h.lock.mu.Lock()
	defer h.lock.mu.Unlock()
	h.lock.released++
	return nil
}

type fixture struct {
	s      *Scheduler
	engine *mock.MockEngine
	rec    *recorder
	lock   *fakeLock
	wake   *wakelock.Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	logger := log.New(io.Discard)
	f := &fixture{
		engine: mock.New(),
		rec:    &recorder{},
		lock:   &fakeLock{},
	}
	f.wake = wakelock.NewManager(f.lock, true, logger)

	base := []Option{
		WithNotifier(f.rec.notify),
		WithLogger(logger),
		WithWakeLock(f.wake),
	}
	f.s = New(f.engine, append(base, opts...)...)
	t.Cleanup(func() { f.s.Close() })
	return f
}

// flush waits until every notification emitted so far has been delivered.
func flush(t *testing.T, s *Scheduler) {
	t.Helper()

	delivered := make(chan struct{})
	if err := s.do(func() { s.outbox.put(func() { close(delivered) }) }); err != nil {
		t.Fatalf("flush: %v", err)
	}
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("notifications were not delivered")
	}
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func mustLoad(t *testing.T, s *Scheduler, paragraphs []string) {
	t.Helper()
	if err := s.Load(paragraphs, "en"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

// complete finishes the sentence in flight and waits for the scheduler to
// handle the result.
func (f *fixture) complete() bool {
	ok := f.engine.Complete()
	f.sync()
	return ok
}

// fail finishes the sentence in flight with err and waits for the
// scheduler to handle it.
func (f *fixture) fail(err error) bool {
	ok := f.engine.Fail(err)
	f.sync()
	return ok
}

// sync returns once the scheduler has drained what was queued before it.
func (f *fixture) sync() {
	_ = f.s.Position()
}

func assertPosition(t *testing.T, s *Scheduler, want tts.Position) {
	t.Helper()
	if got := s.Position(); got != want {
		t.Errorf("Expected position %+v, got %+v", want, got)
	}
}

func assertTexts(t *testing.T, engine *mock.MockEngine, want ...string) {
	t.Helper()
	got := engine.Texts()
	if len(got) != len(want) {
		t.Fatalf("Expected submissions %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Submission %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)

	if err := f.s.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	assertTexts(t, f.engine, "First sentence.")
	if u := f.engine.Submissions()[0]; u.Rate != 1.0 || u.Language != "en" {
		t.Errorf("Unexpected utterance settings: %+v", u)
	}
	if !f.wake.Held() {
		t.Error("Expected wake lock held while playing")
	}

	f.complete()
	assertPosition(t, f.s, tts.Position{Paragraph: 0, Sentence: 1})
	assertTexts(t, f.engine, "First sentence.", "Second sentence.")

	f.complete()
	assertPosition(t, f.s, tts.Position{Paragraph: 1, Sentence: 0})
	assertTexts(t, f.engine, "First sentence.", "Second sentence.", "Third sentence.")

	f.complete()
	snap := f.s.Snapshot()
	if snap.State != tts.StateEnded || snap.IsPlaying {
		t.Errorf("Expected ended, got %+v", snap)
	}
	assertPosition(t, f.s, tts.Position{})

	if f.complete() {
		t.Error("Nothing should be in flight after the end")
	}
	flush(t, f.s)

	var entered []tts.ParagraphChangedMsg
	for _, m := range messages[tts.ParagraphChangedMsg](f.rec) {
		if m.Index == 1 {
			entered = append(entered, m)
		}
	}
	if len(entered) != 1 || entered[0].Text != "Third sentence." {
		t.Errorf("Expected one ParagraphChanged(1), got %+v", entered)
	}

	if n := len(messages[tts.EndedMsg](f.rec)); n != 1 {
		t.Errorf("Expected one EndedMsg, got %d", n)
	}
	if progress := messages[tts.ProgressMsg](f.rec); len(progress) != 3 {
		t.Errorf("Expected progress per submission, got %d", len(progress))
	}

	if f.wake.Held() {
		t.Error("Wake lock should be released at the end")
	}
	if acquired, released := f.lock.counts(); acquired != 1 || released != 1 {
		t.Errorf("Expected one acquire and release, got %d/%d", acquired, released)
	}
}

func TestPlaySubmitsOnce(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)

	_ = f.s.Play()
	_ = f.s.Play()
	assertTexts(t, f.engine, "First sentence.")

	snap := f.s.Snapshot()
	if !snap.IsPlaying || snap.TotalParagraphs != 2 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestPlayEmptyArticle(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, []string{"", "  "})

	_ = f.s.Play()
	if len(f.engine.Texts()) != 0 {
		t.Error("Empty article should not submit")
	}
	if f.s.Snapshot().State != tts.StateIdle {
		t.Error("Empty article should stay idle")
	}
}

// laggySynth keeps every callback so tests can deliver them late.
type laggySynth struct {
	mu      sync.Mutex
	texts   []string
	dones   []func(tts.Result)
	cancels int
}

func (l *laggySynth) Speak(u tts.Utterance, done func(tts.Result)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts = append(l.texts, u.Text)
	l.dones = append(l.dones, done)
	return nil
}

func (l *laggySynth) Pause() error  { return nil }
func (l *laggySynth) Resume() error { return nil }

func (l *laggySynth) Cancel() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancels++
	return nil
}

func (l *laggySynth) Status() tts.SpeechStatus { return tts.SpeechSpeaking }
func (l *laggySynth) Voices() []tts.Voice      { return nil }

func (l *laggySynth) deliver(i int, r tts.Result) {
	l.mu.Lock()
	done := l.dones[i]
	l.mu.Unlock()
	done(r)
}

func (l *laggySynth) submitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.texts)
}

func TestStaleCompletionIgnored(t *testing.T) {
	synth := &laggySynth{}
	rec := &recorder{}
	s := New(synth, WithNotifier(rec.notify), WithLogger(log.New(io.Discard)))
	defer s.Close()

	mustLoad(t, s, longArticle)
	_ = s.Play()
	_ = s.SkipForward()
	if synth.cancels != 1 {
		t.Fatalf("Expected skip to cancel, got %d cancels", synth.cancels)
	}
	flush(t, s)
	before := len(rec.all())

	// The canceled sentence finishes late
	synth.deliver(0, tts.Result{})
	flush(t, s)

	assertPosition(t, s, tts.Position{Paragraph: 1, Sentence: 0})
	if synth.submitted() != 2 {
		t.Errorf("Stale completion should not submit, got %d submissions", synth.submitted())
	}
	if after := len(rec.all()); after != before {
		t.Errorf("Stale completion emitted %d notifications", after-before)
	}

	// The current sentence completes normally
	synth.deliver(1, tts.Result{})
	assertPosition(t, s, tts.Position{Paragraph: 2, Sentence: 0})
	if synth.submitted() != 3 {
		t.Errorf("Expected next submission, got %d", synth.submitted())
	}
}

func TestSkipForwardAtLastParagraph(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)

	_ = f.s.JumpToParagraph(2)
	_ = f.s.Play()
	_ = f.s.SkipSentenceForward()
	assertPosition(t, f.s, tts.Position{Paragraph: 2, Sentence: 1})

	cancels := f.engine.Cancels()
	submitted := len(f.engine.Texts())

	_ = f.s.SkipForward()

	if f.engine.Cancels() != cancels {
		t.Error("Skip at last paragraph should not cancel")
	}
	if len(f.engine.Texts()) != submitted {
		t.Error("Skip at last paragraph should not submit")
	}
	assertPosition(t, f.s, tts.Position{Paragraph: 2, Sentence: 1})
}

func TestJumpToParagraphOutOfRange(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)
	_ = f.s.Play()
	before := f.s.Snapshot()

	for _, index := range []int{-1, len(longArticle)} {
		_ = f.s.JumpToParagraph(index)
	}

	if f.engine.Cancels() != 0 {
		t.Errorf("Out of range jumps should not cancel, got %d", f.engine.Cancels())
	}
	if after := f.s.Snapshot(); after != before {
		t.Errorf("Snapshot changed from %+v to %+v", before, after)
	}
	assertTexts(t, f.engine, "Alpha one.")
}

func TestNavigationWhilePlaying(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)
	_ = f.s.Play()

	_ = f.s.SkipForward()
	assertPosition(t, f.s, tts.Position{Paragraph: 1})
	_ = f.s.SkipBackward()
	assertPosition(t, f.s, tts.Position{Paragraph: 0})
	_ = f.s.SkipSentenceForward()
	assertPosition(t, f.s, tts.Position{Paragraph: 0, Sentence: 1})
	_ = f.s.SkipSentenceForward()
	assertPosition(t, f.s, tts.Position{Paragraph: 1})
	_ = f.s.SkipSentenceBackward()
	assertPosition(t, f.s, tts.Position{Paragraph: 0})
	_ = f.s.JumpToParagraph(2)
	assertPosition(t, f.s, tts.Position{Paragraph: 2})

	assertTexts(t, f.engine,
		"Alpha one.", "Bravo one.", "Alpha one.", "Alpha two.", "Bravo one.", "Alpha one.", "Charlie one.")
	if f.engine.Cancels() != 6 {
		t.Errorf("Expected a cancel per move, got %d", f.engine.Cancels())
	}
}

func TestNavigationAtStart(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)
	_ = f.s.Play()

	_ = f.s.SkipBackward()
	_ = f.s.SkipSentenceBackward()

	assertPosition(t, f.s, tts.Position{})
	if f.engine.Cancels() != 0 {
		t.Error("Moves before the start should not cancel")
	}
}

func TestNavigationWhileIdle(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)

	_ = f.s.SkipForward()
	assertPosition(t, f.s, tts.Position{Paragraph: 1})
	if len(f.engine.Texts()) != 0 {
		t.Error("Idle navigation should not submit")
	}

	_ = f.s.Play()
	assertTexts(t, f.engine, "Bravo one.")
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, WithResumeGrace(20*time.Millisecond))
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	_ = f.s.Pause()
	if snap := f.s.Snapshot(); !snap.IsPaused {
		t.Fatalf("Expected paused, got %+v", snap)
	}
	if f.engine.Pauses() != 1 || f.engine.Status() != tts.SpeechPaused {
		t.Error("Expected synthesizer pause")
	}
	if f.wake.Held() {
		t.Error("Wake lock should be released while paused")
	}

	// Pause is only legal from Playing
	_ = f.s.Pause()
	if f.engine.Pauses() != 1 {
		t.Error("Second pause should be a no-op")
	}

	_ = f.s.Play()
	if snap := f.s.Snapshot(); !snap.IsPlaying {
		t.Fatalf("Expected playing, got %+v", snap)
	}
	if f.engine.Resumes() != 1 {
		t.Error("Play from paused should resume")
	}
	if !f.wake.Held() {
		t.Error("Wake lock should be held again")
	}

	// The watchdog finds the synthesizer speaking and does nothing
	time.Sleep(80 * time.Millisecond)
	assertTexts(t, f.engine, "First sentence.")
	if f.engine.Cancels() != 0 {
		t.Error("Healthy resume should not cancel")
	}

	f.complete()
	assertTexts(t, f.engine, "First sentence.", "Second sentence.")
}

func TestResumeWatchdog(t *testing.T) {
	f := newFixture(t, WithResumeGrace(20*time.Millisecond))
	mustLoad(t, f.s, article)
	f.engine.SetIgnoreResume(true)

	_ = f.s.Play()
	_ = f.s.Pause()
	_ = f.s.Resume()

	if !f.s.Snapshot().IsPlaying {
		t.Fatal("Resume should be optimistic")
	}

	eventually(t, func() bool { return len(f.engine.Texts()) == 2 }, "watchdog resubmission")
	time.Sleep(100 * time.Millisecond)

	assertTexts(t, f.engine, "First sentence.", "First sentence.")
	assertPosition(t, f.s, tts.Position{})
	if f.engine.Cancels() != 1 {
		t.Errorf("Expected exactly one cancel, got %d", f.engine.Cancels())
	}

	f.complete()
	assertTexts(t, f.engine, "First sentence.", "First sentence.", "Second sentence.")
}

func TestResumeWatchdogIdleSynthesizer(t *testing.T) {
	t.Run("late completion", func(t *testing.T) {
		f := newFixture(t, WithResumeGrace(20*time.Millisecond))
		mustLoad(t, f.s, article)
		f.engine.SetIgnoreResume(true)

		_ = f.s.Play()
		_ = f.s.Pause()
		_ = f.s.Resume()
		// Finished speaking, completion still on its way
		f.engine.SetStatus(tts.SpeechIdle)

		time.Sleep(60 * time.Millisecond)
		f.complete()
		time.Sleep(settleDelay + 100*time.Millisecond)

		assertTexts(t, f.engine, "First sentence.", "Second sentence.")
		if f.engine.Cancels() != 0 {
			t.Errorf("Finished sentence should not be replayed, got %d cancels", f.engine.Cancels())
		}
	})

	t.Run("stays idle", func(t *testing.T) {
		f := newFixture(t, WithResumeGrace(20*time.Millisecond))
		mustLoad(t, f.s, article)
		f.engine.SetIgnoreResume(true)

		_ = f.s.Play()
		_ = f.s.Pause()
		_ = f.s.Resume()
		f.engine.SetStatus(tts.SpeechIdle)

		eventually(t, func() bool { return len(f.engine.Texts()) == 2 }, "watchdog resubmission")
		assertTexts(t, f.engine, "First sentence.", "First sentence.")
		assertPosition(t, f.s, tts.Position{})
	})
}

func TestResumeWatchdogClearedByPause(t *testing.T) {
	f := newFixture(t, WithResumeGrace(30*time.Millisecond))
	mustLoad(t, f.s, article)
	f.engine.SetIgnoreResume(true)

	_ = f.s.Play()
	_ = f.s.Pause()
	_ = f.s.Resume()
	_ = f.s.Pause()

	time.Sleep(100 * time.Millisecond)
	assertTexts(t, f.engine, "First sentence.")
	if f.engine.Cancels() != 0 {
		t.Error("Cleared watchdog should not cancel")
	}
}

func TestPauseRefused(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	f.engine.SetPauseError(errors.New("not supported"))

	_ = f.s.Play()
	_ = f.s.Pause()
	if f.engine.Cancels() != 1 {
		t.Fatal("Refused pause should cancel the sentence")
	}

	_ = f.s.Resume()
	assertTexts(t, f.engine, "First sentence.", "First sentence.")
	assertPosition(t, f.s, tts.Position{})
}

func TestCompletionWhilePaused(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()
	_ = f.s.Pause()

	// The sentence finished just as the pause arrived
	f.complete()
	assertPosition(t, f.s, tts.Position{Paragraph: 0, Sentence: 1})
	assertTexts(t, f.engine, "First sentence.")

	_ = f.s.Resume()
	assertTexts(t, f.engine, "First sentence.", "Second sentence.")
}

func TestStop(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)
	_ = f.s.Play()
	f.complete()

	_ = f.s.Stop()
	snap := f.s.Snapshot()
	if snap.State != tts.StateIdle || snap.CurrentSentence != 0 {
		t.Errorf("Expected idle at start, got %+v", snap)
	}
	if f.engine.Cancels() != 1 || f.engine.Pending() {
		t.Error("Stop should cancel the sentence in flight")
	}
	if f.wake.Held() {
		t.Error("Stop should release the wake lock")
	}

	_ = f.s.Play()
	if texts := f.engine.Texts(); texts[len(texts)-1] != "Alpha one." {
		t.Errorf("Play after stop should restart, got %q", texts)
	}
}

func TestStopAfterEndedReplays(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, []string{"Only sentence."})
	_ = f.s.Play()
	f.complete()

	// Ended is terminal
	_ = f.s.Play()
	_ = f.s.SkipForward()
	assertTexts(t, f.engine, "Only sentence.")

	_ = f.s.Stop()
	_ = f.s.Play()
	assertTexts(t, f.engine, "Only sentence.", "Only sentence.")
}

func TestLoadStopsPlayback(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)
	_ = f.s.Play()
	_ = f.s.SkipForward()

	mustLoad(t, f.s, []string{"New article.", "", "Second paragraph."})

	snap := f.s.Snapshot()
	if snap.State != tts.StateIdle || snap.TotalParagraphs != 2 {
		t.Errorf("Unexpected snapshot after load %+v", snap)
	}
	assertPosition(t, f.s, tts.Position{})
	if f.engine.Pending() {
		t.Error("Load should cancel the sentence in flight")
	}
	if p := f.s.Paragraphs(); len(p) != 2 || p[1] != "Second paragraph." {
		t.Errorf("Unexpected paragraphs %q", p)
	}
}

func TestSynthesisErrors(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	// Benign errors are swallowed
	f.fail(errors.New("synthesis-failed: interrupted"))
	flush(t, f.s)
	if n := len(messages[tts.ErrorMsg](f.rec)); n != 0 {
		t.Errorf("Benign error surfaced %d times", n)
	}

	_ = f.s.Play()
	boom := errors.New("audio device lost")
	f.fail(boom)
	flush(t, f.s)

	errs := messages[tts.ErrorMsg](f.rec)
	if len(errs) != 1 || !errors.Is(errs[0].Err, boom) {
		t.Fatalf("Expected one surfaced error, got %+v", errs)
	}
	var engineErr *tts.EngineError
	if !errors.As(errs[0].Err, &engineErr) || engineErr.Where != (tts.Position{}) {
		t.Errorf("Expected EngineError at (0,0), got %v", errs[0].Err)
	}

	// No state change and no auto-advance
	snap := f.s.Snapshot()
	if !snap.IsPlaying || snap.CurrentSentence != 0 {
		t.Errorf("Error should not change state, got %+v", snap)
	}
	assertTexts(t, f.engine, "First sentence.", "First sentence.")

	// The caller retries
	_ = f.s.Play()
	assertTexts(t, f.engine, "First sentence.", "First sentence.", "First sentence.")
}

func TestSpeakRejected(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	f.engine.SetSpeakError(tts.ErrEngineNotAvailable)

	_ = f.s.Play()
	flush(t, f.s)

	errs := messages[tts.ErrorMsg](f.rec)
	if len(errs) != 1 || !errors.Is(errs[0].Err, tts.ErrEngineNotAvailable) {
		t.Errorf("Expected engine error, got %+v", errs)
	}
}

func TestForegroundRecovery(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	// Still speaking: nothing to do
	_ = f.s.SetForeground(true)
	assertTexts(t, f.engine, "First sentence.")

	_ = f.s.SetForeground(false)
	f.engine.SetStatus(tts.SpeechIdle)
	_ = f.s.SetForeground(true)

	assertTexts(t, f.engine, "First sentence.", "First sentence.")
	assertPosition(t, f.s, tts.Position{})
	if f.engine.Cancels() != 1 {
		t.Errorf("Expected cancel before resubmit, got %d", f.engine.Cancels())
	}

	// Not playing: nothing to recover
	_ = f.s.Pause()
	f.engine.SetStatus(tts.SpeechIdle)
	_ = f.s.SetForeground(true)
	if len(f.engine.Texts()) != 2 {
		t.Error("Paused scheduler should not resubmit")
	}
}

func TestForegroundAfterError(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	f.fail(errors.New("audio device lost"))
	f.engine.SetStatus(tts.SpeechIdle)
	_ = f.s.SetForeground(true)
	flush(t, f.s)

	assertTexts(t, f.engine, "First sentence.")
	if f.engine.Cancels() != 0 {
		t.Errorf("Failed sentence should wait for the caller, got %d cancels", f.engine.Cancels())
	}
	if errs := messages[tts.ErrorMsg](f.rec); len(errs) != 1 {
		t.Errorf("Expected one error, got %+v", errs)
	}
}

func TestSeekToTime(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, longArticle)
	_ = f.s.Play()

	est := f.s.Timeline()
	if est.Duration <= 0 || est.Position != 0 {
		t.Fatalf("Unexpected timeline %+v", est)
	}

	_ = f.s.SeekToTime(est.Duration)
	assertPosition(t, f.s, tts.Position{Paragraph: 2, Sentence: 1})
	if f.s.CurrentSentence() != "Charlie two." {
		t.Errorf("Unexpected sentence %q", f.s.CurrentSentence())
	}

	_ = f.s.SeekToTime(0)
	assertPosition(t, f.s, tts.Position{})

	_ = f.s.SeekBy(time.Hour)
	assertPosition(t, f.s, tts.Position{Paragraph: 2, Sentence: 1})
	_ = f.s.SeekBy(-time.Hour)
	assertPosition(t, f.s, tts.Position{})

	assertTexts(t, f.engine, "Alpha one.", "Charlie two.", "Alpha one.", "Charlie two.", "Alpha one.")
}

func TestRateAppliesToNextSentence(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	_ = f.s.SetRate(2.0)
	_ = f.s.SetPitch(1.2)
	if len(f.engine.Submissions()) != 1 {
		t.Fatal("Rate change should not resubmit")
	}

	f.complete()
	subs := f.engine.Submissions()
	if subs[0].Rate != 1.0 || subs[1].Rate != 2.0 || subs[1].Pitch != 1.2 {
		t.Errorf("Unexpected rates %v then %v", subs[0].Rate, subs[1].Rate)
	}

	_ = f.s.SetRate(10)
	if f.s.Rate() != tts.MaxRate {
		t.Errorf("Expected rate clamped to %v, got %v", tts.MaxRate, f.s.Rate())
	}
}

func TestVoiceSelection(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)

	v, ok := f.s.Voice()
	if !ok || v.ID != "mock-voice-2" {
		t.Errorf("Expected enhanced English voice, got %+v", v)
	}

	_ = f.s.SetVoicePreference("Mock Voice 1")
	_ = f.s.Play()
	if u := f.engine.Submissions()[0]; u.Voice == nil || u.Voice.ID != "mock-voice-1" {
		t.Errorf("Expected preferred voice, got %+v", u.Voice)
	}

	if err := f.s.Load(article, "fr"); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.s.Voice(); v.ID != "mock-voice-3" {
		t.Errorf("Expected French voice, got %+v", v)
	}

	// Catalog changes are picked up without a reload
	f.engine.SetVoices([]tts.Voice{{ID: "new-fr", Name: "Nouvelle", Language: "fr-CA"}})
	if v, _ := f.s.Voice(); v.ID != "new-fr" {
		t.Errorf("Expected voice from new catalog, got %+v", v)
	}

	f.engine.SetVoices(nil)
	if _, ok := f.s.Voice(); ok {
		t.Error("Empty catalog should fall back to the engine default")
	}

	flush(t, f.s)
	changes := messages[tts.VoiceChangedMsg](f.rec)
	if len(changes) == 0 || changes[len(changes)-1].Selected {
		t.Errorf("Expected final VoiceChangedMsg without selection, got %+v", changes)
	}
}

func TestWakeLockToggle(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	_ = f.s.SetWakeLockEnabled(false)
	if f.wake.Held() {
		t.Error("Disabling should release the lock mid-playback")
	}
	if !f.s.Snapshot().IsPlaying {
		t.Error("Wake lock changes must not affect playback")
	}

	_ = f.s.SetWakeLockEnabled(true)
	if !f.wake.Held() {
		t.Error("Re-enabling while playing should acquire")
	}
}

func TestNotifierMayCallBack(t *testing.T) {
	var s *Scheduler
	engine := mock.New()
	stopped := make(chan struct{})

	s = New(engine,
		WithLogger(log.New(io.Discard)),
		WithNotifier(func(msg any) {
			if _, ok := msg.(tts.EndedMsg); ok {
				_ = s.Stop()
				_ = s.Snapshot()
				close(stopped)
			}
		}),
	)
	defer s.Close()

	mustLoad(t, s, []string{"Only sentence."})
	_ = s.Play()
	engine.Complete()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Notifier calling back into the scheduler deadlocked")
	}
	if s.Snapshot().State != tts.StateIdle {
		t.Error("Expected idle after stop from notifier")
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	mustLoad(t, f.s, article)
	_ = f.s.Play()

	if err := f.s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := f.s.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}

	if err := f.s.Play(); !errors.Is(err, tts.ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if f.engine.Pending() {
		t.Error("Close should cancel the sentence in flight")
	}
	if f.wake.Held() {
		t.Error("Close should release the wake lock")
	}

	// Late callbacks after close are dropped
	f.complete()
}
