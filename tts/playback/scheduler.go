// Package playback drives a speech synthesizer through an article one
// sentence at a time.
//
// The Scheduler owns all playback state and mutates it on a single actor
// goroutine. Public methods, synthesizer callbacks and the resume watchdog
// are all turned into closures on the actor's mailbox, so no state is ever
// touched concurrently. Every cancellation of an in-flight sentence bumps a
// generation counter; callbacks carry the generation they were submitted
// under and are ignored once it no longer matches.
package playback

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/sentence"
	"github.com/dgnsrekt/readaloud/tts/timeline"
	"github.com/dgnsrekt/readaloud/tts/voice"
	"github.com/dgnsrekt/readaloud/tts/wakelock"
)

// Scheduler is the playback state machine.
type Scheduler struct {
	// Collaborators
	synth     tts.Synthesizer
	segmenter *sentence.Segmenter
	estimator timeline.Estimator
	wake      *wakelock.Manager
	logger    *log.Logger
	engine    string
	grace     time.Duration

	// Actor plumbing
	inbox     *mailbox[func()]
	outbox    *mailbox[func()]
	notify    tts.Notifier
	done      chan struct{}
	closeOnce sync.Once

	// Everything below is owned by the actor goroutine.
	state         tts.PlaybackState
	matrix        tts.Matrix
	paragraphs    []string
	lang          string
	pos           tts.Position
	generation    uint64
	inFlight      bool
	lastAnnounced int

	rate      float64
	pitch     float64
	preferred string
	voice     *tts.Voice

	watchdog    *time.Timer
	resumeToken uint64
}

// New creates a scheduler for synth and starts its actor goroutine. Call
// Close to stop it.
func New(synth tts.Synthesizer, opts ...Option) *Scheduler {
	defaults := tts.DefaultConfig()

	s := &Scheduler{
		synth:         synth,
		segmenter:     sentence.Default(),
		estimator:     timeline.New(timeline.DefaultCharsPerSecond),
		logger:        log.Default().WithPrefix("playback"),
		grace:         DefaultResumeGrace,
		inbox:         newMailbox[func()](),
		outbox:        newMailbox[func()](),
		done:          make(chan struct{}),
		state:         tts.StateIdle,
		lang:          defaults.Language,
		lastAnnounced: -1,
		rate:          defaults.Rate,
		pitch:         defaults.Pitch,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.wake == nil {
		s.wake = wakelock.NewManager(nil, false, s.logger)
	}

	if n, ok := synth.(tts.CatalogNotifier); ok {
		n.OnVoicesChanged(func() {
			s.inbox.put(s.selectVoice)
		})
	}

	go s.run()
	go s.outbox.drain(func(fn func()) { fn() })

	return s
}

// Close cancels playback, releases the wake lock and stops the actor.
// Calls made after Close return tts.ErrClosed.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		s.inbox.close()
		<-s.done
		s.outbox.close()
	})
	return nil
}

func (s *Scheduler) run() {
	defer close(s.done)
	s.inbox.drain(func(fn func()) { fn() })
	s.shutdown()
}

// do runs fn on the actor and waits for it to finish.
func (s *Scheduler) do(fn func()) error {
	finished := make(chan struct{})
	if !s.inbox.put(func() {
		defer close(finished)
		fn()
	}) {
		return tts.ErrClosed
	}
	<-finished
	return nil
}

// Load replaces the article. Any current playback is stopped, the sentence
// matrix is rebuilt and a voice is selected for lang. Blank paragraphs are
// dropped.
func (s *Scheduler) Load(paragraphs []string, lang string) error {
	return s.do(func() {
		s.reset()
		s.matrix, s.paragraphs = buildMatrix(s.segmenter, paragraphs)
		if lang != "" {
			s.lang = lang
		}
		s.logger.Debug("Article loaded", "paragraphs", len(s.matrix), "lang", s.lang)
		s.selectVoice()
		s.emitState()
	})
}

// Play starts playback from Idle or resumes from Paused. While Playing
// with nothing in flight, as after an engine error, it resubmits the
// current sentence.
func (s *Scheduler) Play() error {
	return s.do(s.play)
}

// Pause suspends playback. Only legal while Playing.
func (s *Scheduler) Pause() error {
	return s.do(s.pause)
}

// Resume continues paused playback. Only legal while Paused.
func (s *Scheduler) Resume() error {
	return s.do(s.resume)
}

// TogglePlayPause pauses while Playing and plays otherwise.
func (s *Scheduler) TogglePlayPause() error {
	return s.do(func() {
		if s.state == tts.StatePlaying {
			s.pause()
			return
		}
		s.play()
	})
}

// Stop cancels playback and rewinds to the start of the article.
func (s *Scheduler) Stop() error {
	return s.do(func() {
		s.reset()
		s.emitState()
	})
}

// SkipForward moves to the start of the next paragraph.
func (s *Scheduler) SkipForward() error {
	return s.navigate(nextParagraph)
}

// SkipBackward moves to the start of the previous paragraph.
func (s *Scheduler) SkipBackward() error {
	return s.navigate(prevParagraph)
}

// SkipSentenceForward moves to the next sentence.
func (s *Scheduler) SkipSentenceForward() error {
	return s.navigate(nextSentence)
}

// SkipSentenceBackward moves to the previous sentence.
func (s *Scheduler) SkipSentenceBackward() error {
	return s.navigate(prevSentence)
}

// JumpToParagraph moves to the start of paragraph index. Out of range
// indexes are ignored.
func (s *Scheduler) JumpToParagraph(index int) error {
	return s.navigate(func(m tts.Matrix, _ tts.Position) (tts.Position, bool) {
		return paragraphStart(m, index)
	})
}

// SeekToTime moves to the sentence the timeline estimate places at target.
func (s *Scheduler) SeekToTime(target time.Duration) error {
	return s.navigate(func(m tts.Matrix, _ tts.Position) (tts.Position, bool) {
		return s.estimator.PositionAt(m, target, s.rate), len(m) > 0
	})
}

// SeekBy moves delta away from the current estimated position.
func (s *Scheduler) SeekBy(delta time.Duration) error {
	return s.navigate(func(m tts.Matrix, pos tts.Position) (tts.Position, bool) {
		est := s.estimator.Compute(m, pos, s.rate)
		return s.estimator.PositionAt(m, est.Position+delta, s.rate), len(m) > 0
	})
}

// SetRate sets the speech rate for subsequent sentences.
func (s *Scheduler) SetRate(rate float64) error {
	return s.do(func() {
		s.rate = tts.ClampRate(rate)
	})
}

// SetPitch sets the pitch for subsequent sentences.
func (s *Scheduler) SetPitch(pitch float64) error {
	return s.do(func() {
		if pitch > 0 {
			s.pitch = pitch
		}
	})
}

// SetVoicePreference sets the preferred voice name and reselects.
func (s *Scheduler) SetVoicePreference(name string) error {
	return s.do(func() {
		s.preferred = name
		s.selectVoice()
	})
}

// SetWakeLockEnabled turns the wake lock feature on or off. Disabling it
// mid-playback releases the lock.
func (s *Scheduler) SetWakeLockEnabled(enabled bool) error {
	return s.do(func() {
		s.wake.SetEnabled(enabled)
		if enabled && s.state == tts.StatePlaying {
			s.wake.Acquire()
		}
	})
}

// SetForeground reports a host visibility change. Returning to the
// foreground while a sentence is in flight but the synthesizer is idle
// means the OS stopped speech behind our back, so the sentence is
// resubmitted. A sentence that already failed is left to the caller.
func (s *Scheduler) SetForeground(foreground bool) error {
	return s.do(func() {
		if !foreground || s.state != tts.StatePlaying || !s.inFlight {
			return
		}
		if s.synth.Status() != tts.SpeechIdle {
			return
		}
		s.logger.Info("Speech stopped while in background, resubmitting", "paragraph", s.pos.Paragraph, "sentence", s.pos.Sentence)
		s.restart()
	})
}

// VoicesChanged tells the scheduler the synthesizer's catalog changed.
// Synthesizers implementing tts.CatalogNotifier do not need this.
func (s *Scheduler) VoicesChanged() error {
	return s.do(s.selectVoice)
}

// Snapshot returns the current state.
func (s *Scheduler) Snapshot() tts.StateSnapshot {
	var snap tts.StateSnapshot
	_ = s.do(func() { snap = s.snapshot() })
	return snap
}

// Position returns the current sentence position.
func (s *Scheduler) Position() tts.Position {
	var pos tts.Position
	_ = s.do(func() { pos = s.pos })
	return pos
}

// Timeline estimates the article duration and elapsed time at the current
// rate. The estimate is derived from character counts, not audio.
func (s *Scheduler) Timeline() timeline.Estimate {
	var est timeline.Estimate
	_ = s.do(func() { est = s.estimator.Compute(s.matrix, s.pos, s.rate) })
	return est
}

// Paragraphs returns the loaded paragraphs, blank ones removed.
func (s *Scheduler) Paragraphs() []string {
	var paragraphs []string
	_ = s.do(func() { paragraphs = append([]string(nil), s.paragraphs...) })
	return paragraphs
}

// Matrix returns the sentence matrix of the loaded article.
func (s *Scheduler) Matrix() tts.Matrix {
	var m tts.Matrix
	_ = s.do(func() { m = s.matrix })
	return m
}

// CurrentSentence returns the text at the current position.
func (s *Scheduler) CurrentSentence() string {
	var text string
	_ = s.do(func() { text = s.matrix.Sentence(s.pos) })
	return text
}

// Voice returns the selected voice. The boolean is false when the
// synthesizer default is in use.
func (s *Scheduler) Voice() (tts.Voice, bool) {
	var v *tts.Voice
	_ = s.do(func() { v = s.voice })
	if v == nil {
		return tts.Voice{}, false
	}
	return *v, true
}

// Rate returns the speech rate.
func (s *Scheduler) Rate() float64 {
	var rate float64
	_ = s.do(func() { rate = s.rate })
	return rate
}

// Actor-side transitions. Everything below runs on the actor goroutine.

func (s *Scheduler) play() {
	switch s.state {
	case tts.StatePaused:
		s.resume()
	case tts.StateIdle:
		if len(s.matrix) == 0 {
			return
		}
		s.state = tts.StatePlaying
		s.wake.Acquire()
		s.submit()
		s.emitState()
	case tts.StatePlaying:
		if !s.inFlight {
			s.submit()
		}
	}
}

func (s *Scheduler) pause() {
	if s.state != tts.StatePlaying {
		return
	}

	s.clearWatchdog()
	if s.inFlight {
		if err := s.synth.Pause(); err != nil {
			// Resume will resubmit from the start of the sentence instead
			s.logger.Debug("Synthesizer refused to pause, canceling", "error", err)
			s.cancel()
		}
	}

	s.state = tts.StatePaused
	s.wake.Release()
	s.emitState()
}

func (s *Scheduler) resume() {
	if s.state != tts.StatePaused {
		return
	}

	s.state = tts.StatePlaying
	s.wake.Acquire()

	if !s.inFlight {
		s.submit()
	} else {
		if err := s.synth.Resume(); err != nil {
			s.logger.Debug("Synthesizer resume failed", "error", err)
		}
		s.armWatchdog()
	}

	s.emitState()
}

// reset stops playback and rewinds to (0,0) in Idle.
func (s *Scheduler) reset() {
	s.cancel()
	s.wake.Release()
	s.state = tts.StateIdle
	s.pos = tts.Position{}
	s.lastAnnounced = -1
}

// navigate moves to the position chosen by move. Moves that leave the
// article are ignored without touching the synthesizer.
func (s *Scheduler) navigate(move func(tts.Matrix, tts.Position) (tts.Position, bool)) error {
	return s.do(func() {
		if s.state == tts.StateEnded {
			return
		}
		to, ok := move(s.matrix, s.pos)
		if !ok || !s.matrix.Valid(to) {
			return
		}

		s.cancel()
		s.pos = to
		if s.state == tts.StatePlaying {
			s.submit()
		}
		s.emitState()
	})
}

// cancel abandons the sentence in flight and invalidates its callback.
func (s *Scheduler) cancel() {
	s.clearWatchdog()
	s.generation++
	if !s.inFlight {
		return
	}
	s.inFlight = false
	if err := s.synth.Cancel(); err != nil {
		s.logger.Debug("Synthesizer cancel failed", "error", err)
	}
}

// restart cancels and resubmits the current sentence.
func (s *Scheduler) restart() {
	s.cancel()
	s.submit()
}

// submit hands the current sentence to the synthesizer.
func (s *Scheduler) submit() {
	text := s.matrix.Sentence(s.pos)
	gen, at := s.generation, s.pos

	if at.Paragraph != s.lastAnnounced {
		s.lastAnnounced = at.Paragraph
		s.emit(tts.ParagraphChangedMsg{Index: at.Paragraph, Text: s.paragraphs[at.Paragraph]})
	}
	s.emit(tts.ProgressMsg{Paragraph: at.Paragraph, Sentence: at.Sentence, Total: len(s.matrix)})

	u := tts.Utterance{
		Text:     text,
		Rate:     s.rate,
		Pitch:    s.pitch,
		Language: s.lang,
		Voice:    s.voice,
	}

	s.logger.Debug("Speaking", "paragraph", at.Paragraph, "sentence", at.Sentence, "generation", gen)
	s.inFlight = true
	err := s.synth.Speak(u, func(r tts.Result) {
		s.inbox.put(func() { s.complete(gen, at, r) })
	})
	if err != nil {
		s.inFlight = false
		s.fail(at, "speak", err)
	}
}

// complete handles a synthesizer result for the sentence submitted at
// position at under generation gen.
func (s *Scheduler) complete(gen uint64, at tts.Position, r tts.Result) {
	if gen != s.generation {
		s.logger.Debug("Ignoring stale result", "generation", gen, "current", s.generation)
		return
	}
	s.inFlight = false
	s.clearWatchdog()

	if r.Err != nil {
		if tts.IsBenign(r.Err) {
			s.logger.Debug("Utterance interrupted", "error", r.Err)
			return
		}
		s.fail(at, "speak", r.Err)
		return
	}

	next, ok := nextSentence(s.matrix, s.pos)
	if !ok {
		s.end()
		return
	}

	s.pos = next
	if s.state == tts.StatePlaying {
		s.submit()
	}
	s.emitState()
}

func (s *Scheduler) end() {
	s.logger.Debug("Article finished")
	s.state = tts.StateEnded
	s.pos = tts.Position{}
	s.lastAnnounced = -1
	s.wake.Release()
	s.emitState()
	s.emit(tts.EndedMsg{})
}

// fail surfaces a genuine synthesis error. State is left alone.
func (s *Scheduler) fail(at tts.Position, action string, err error) {
	if tts.IsBenign(err) {
		return
	}
	s.logger.Warn("Speech failed", "action", action, "paragraph", at.Paragraph, "sentence", at.Sentence, "error", err)
	s.emit(tts.ErrorMsg{Err: &tts.EngineError{Err: err, Engine: s.engine, Action: action, Where: at}})
}

// armWatchdog checks, after the grace period, that a resume took effect.
func (s *Scheduler) armWatchdog() {
	s.clearWatchdog()
	s.scheduleCheck(s.grace, false)
}

// scheduleCheck queues a resume check after d. settled marks the second
// look taken after an idle synthesizer was seen.
func (s *Scheduler) scheduleCheck(d time.Duration, settled bool) {
	token := s.resumeToken
	s.watchdog = time.AfterFunc(d, func() {
		s.inbox.put(func() { s.checkResume(token, settled) })
	})
}

func (s *Scheduler) clearWatchdog() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	// Invalidates a check that fired but has not run yet
	s.resumeToken++
}

func (s *Scheduler) checkResume(token uint64, settled bool) {
	if token != s.resumeToken {
		return
	}
	s.watchdog = nil
	if s.state != tts.StatePlaying || !s.inFlight {
		return
	}
	switch s.synth.Status() {
	case tts.SpeechSpeaking:
		return
	case tts.SpeechIdle:
		// An idle synthesizer may have just finished the sentence. Its
		// completion clears the watchdog if it arrives in time.
		if !settled {
			s.scheduleCheck(settleDelay, true)
			return
		}
	}

	s.logger.Warn("Synthesizer did not resume, resubmitting", "paragraph", s.pos.Paragraph, "sentence", s.pos.Sentence)
	s.restart()
}

// selectVoice picks a voice for the loaded language and announces changes.
func (s *Scheduler) selectVoice() {
	v, ok := voice.Select(s.synth.Voices(), s.lang, s.preferred)

	var selected *tts.Voice
	if ok {
		selected = &v
	}
	if sameVoice(s.voice, selected) {
		return
	}

	s.voice = selected
	s.logger.Debug("Voice selected", "voice", v.Name, "lang", s.lang, "default", !ok)
	s.emit(tts.VoiceChangedMsg{Voice: v, Selected: ok})
}

func sameVoice(a, b *tts.Voice) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Scheduler) snapshot() tts.StateSnapshot {
	return tts.StateSnapshot{
		State:            s.state,
		IsPlaying:        s.state == tts.StatePlaying,
		IsPaused:         s.state == tts.StatePaused,
		CurrentParagraph: s.pos.Paragraph,
		CurrentSentence:  s.pos.Sentence,
		TotalParagraphs:  len(s.matrix),
	}
}

func (s *Scheduler) emitState() {
	s.emit(tts.StateChangedMsg{Snapshot: s.snapshot()})
}

// emit queues msg for in-order delivery on the notifier goroutine.
func (s *Scheduler) emit(msg any) {
	if s.notify == nil {
		return
	}
	notify := s.notify
	s.outbox.put(func() { notify(msg) })
}

func (s *Scheduler) shutdown() {
	s.cancel()
	s.wake.Release()
	if s.state != tts.StateIdle {
		s.state = tts.StateIdle
		s.emitState()
	}
}
