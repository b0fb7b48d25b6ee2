// Package mock provides a scriptable in-memory speech engine.
//
// In manual mode (WordsPerMinute == 0) utterances stay in flight until the
// test calls Complete or Fail. In timed mode each utterance completes after
// the time it would take to read it aloud, which makes the engine usable
// from the CLI without any audio hardware.
package mock

import (
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
)

// MockEngine implements tts.Synthesizer for tests and demos.
type MockEngine struct {
	mu sync.Mutex

	// Configuration
	wordsPerMinute int

	// State
	status  tts.SpeechStatus
	pending *utterance
	voices  []tts.Voice

	// Control for testing
	speakErr     error
	pauseErr     error
	ignoreResume bool

	// Recorded calls
	submissions []tts.Utterance
	cancels     int
	pauses      int
	resumes     int

	listeners []func()
}

type utterance struct {
	u    tts.Utterance
	done func(tts.Result)

	// Timed mode
	timer     *time.Timer
	started   time.Time
	remaining time.Duration
}

// New creates a manual-mode engine with a small English voice catalog.
func New() *MockEngine {
	return &MockEngine{
		voices: DefaultVoices(),
	}
}

// NewTimed creates an engine that completes utterances on its own at the
// given reading speed.
func NewTimed(cfg tts.MockConfig) *MockEngine {
	e := New()
	e.wordsPerMinute = cfg.WordsPerMinute
	return e
}

// DefaultVoices returns the catalog new engines start with.
func DefaultVoices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-voice-1", Name: "Mock Voice 1", Language: "en-US"},
		{ID: "mock-voice-2", Name: "Mock Voice 2 (Enhanced)", Language: "en-GB"},
		{ID: "mock-voice-3", Name: "Mock Voix", Language: "fr-FR"},
	}
}

// Speak records u and holds it in flight.
func (e *MockEngine) Speak(u tts.Utterance, done func(tts.Result)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.speakErr != nil {
		return e.speakErr
	}
	if strings.TrimSpace(u.Text) == "" {
		return tts.ErrNothingToSpeak
	}

	e.submissions = append(e.submissions, u)
	p := &utterance{u: u, done: done}
	e.pending = p
	e.status = tts.SpeechSpeaking

	if e.wordsPerMinute > 0 {
		p.remaining = e.duration(u)
		e.startTimer(p)
	}

	return nil
}

// Pause suspends the utterance in flight.
func (e *MockEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pauses++
	if e.pauseErr != nil {
		return e.pauseErr
	}
	if e.pending == nil {
		return tts.ErrNotSpeaking
	}
	if e.status == tts.SpeechPaused {
		return nil
	}

	e.status = tts.SpeechPaused
	if p := e.pending; p.timer != nil {
		p.timer.Stop()
		p.remaining -= time.Since(p.started)
	}
	return nil
}

// Resume continues a paused utterance, unless the engine was told to
// ignore resume requests.
func (e *MockEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resumes++
	if e.ignoreResume {
		return nil
	}
	if e.pending == nil || e.status != tts.SpeechPaused {
		return tts.ErrNotPaused
	}

	e.status = tts.SpeechSpeaking
	if e.wordsPerMinute > 0 {
		e.startTimer(e.pending)
	}
	return nil
}

// Cancel abandons the utterance in flight. Like real engines, it still
// reports a final canceled result for it.
func (e *MockEngine) Cancel() error {
	e.mu.Lock()
	e.cancels++
	p := e.take()
	e.mu.Unlock()

	if p != nil {
		p.done(tts.Result{Err: tts.ErrCanceled})
	}
	return nil
}

// Status reports the simulated engine status.
func (e *MockEngine) Status() tts.SpeechStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Voices returns the current voice catalog.
func (e *MockEngine) Voices() []tts.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Voice(nil), e.voices...)
}

// OnVoicesChanged registers fn to run after SetVoices.
func (e *MockEngine) OnVoicesChanged(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Test control methods

// Complete finishes the utterance in flight successfully. It returns false
// if nothing was in flight.
func (e *MockEngine) Complete() bool {
	return e.finish(tts.Result{})
}

// Fail finishes the utterance in flight with err.
func (e *MockEngine) Fail(err error) bool {
	return e.finish(tts.Result{Err: err})
}

// SetVoices replaces the catalog and notifies listeners.
func (e *MockEngine) SetVoices(voices []tts.Voice) {
	e.mu.Lock()
	e.voices = append([]tts.Voice(nil), voices...)
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// SetStatus overrides the reported status without touching the utterance
// in flight, as when the OS silently kills audio.
func (e *MockEngine) SetStatus(status tts.SpeechStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
}

// SetSpeakError makes Speak reject utterances with err. Nil clears it.
func (e *MockEngine) SetSpeakError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speakErr = err
}

// SetPauseError makes Pause fail with err. Nil clears it.
func (e *MockEngine) SetPauseError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseErr = err
}

// SetIgnoreResume makes Resume report success without resuming.
func (e *MockEngine) SetIgnoreResume(ignore bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ignoreResume = ignore
}

// Submissions returns every utterance passed to Speak.
func (e *MockEngine) Submissions() []tts.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Utterance(nil), e.submissions...)
}

// Texts returns the text of every submission.
func (e *MockEngine) Texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	texts := make([]string, len(e.submissions))
	for i, u := range e.submissions {
		texts[i] = u.Text
	}
	return texts
}

// Pending reports whether an utterance is in flight.
func (e *MockEngine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

// Cancels returns the number of Cancel calls.
func (e *MockEngine) Cancels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancels
}

// Pauses returns the number of Pause calls.
func (e *MockEngine) Pauses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauses
}

// Resumes returns the number of Resume calls.
func (e *MockEngine) Resumes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumes
}

func (e *MockEngine) finish(r tts.Result) bool {
	e.mu.Lock()
	p := e.take()
	e.mu.Unlock()

	if p == nil {
		return false
	}
	p.done(r)
	return true
}

// take removes the utterance in flight. Callers hold e.mu.
func (e *MockEngine) take() *utterance {
	p := e.pending
	if p == nil {
		return nil
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	e.pending = nil
	e.status = tts.SpeechIdle
	return p
}

// startTimer schedules completion of p. Callers hold e.mu.
func (e *MockEngine) startTimer(p *utterance) {
	p.started = time.Now()
	p.timer = time.AfterFunc(max(p.remaining, 0), func() {
		e.mu.Lock()
		if e.pending != p || e.status != tts.SpeechSpeaking {
			e.mu.Unlock()
			return
		}
		e.take()
		e.mu.Unlock()
		p.done(tts.Result{})
	})
}

// duration estimates how long u takes to read aloud.
func (e *MockEngine) duration(u tts.Utterance) time.Duration {
	words := len(strings.Fields(u.Text))
	rate := tts.ClampRate(u.Rate)
	minutes := float64(words) / (float64(e.wordsPerMinute) * rate)
	return time.Duration(minutes * float64(time.Minute))
}
