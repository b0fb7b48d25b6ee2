package tts

// Synthesizer is the speech capability the playback scheduler drives.
//
// Implementations are asynchronous black boxes: Speak returns as soon as the
// utterance is queued, and done is called exactly once per accepted
// utterance, from any goroutine, with either a completed or a failed Result.
// Pause, Resume and Cancel are best effort; a cancelled utterance may still
// report a final Result.
type Synthesizer interface {
	// Speak queues u for speaking. A non-nil error means u was not accepted
	// and done will not be called.
	Speak(u Utterance, done func(Result)) error

	// Pause suspends the utterance being spoken.
	Pause() error

	// Resume continues a paused utterance.
	Resume() error

	// Cancel abandons the utterance being spoken, if any.
	Cancel() error

	// Status reports what the synthesizer believes it is doing.
	Status() SpeechStatus

	// Voices returns the current voice catalog. It may be empty until the
	// catalog has loaded.
	Voices() []Voice
}

// CatalogNotifier is implemented by synthesizers whose voice catalog loads
// asynchronously or changes over time.
type CatalogNotifier interface {
	// OnVoicesChanged registers fn to be called after the catalog changes.
	OnVoicesChanged(fn func())
}

// WakeLock prevents the device from sleeping while a handle is held.
type WakeLock interface {
	// Acquire takes a lock of the given kind (e.g. "idle").
	Acquire(kind string) (WakeHandle, error)
}

// WakeHandle is a held wake lock.
type WakeHandle interface {
	Release() error
}

// Utterance is one unit of text submitted to a Synthesizer.
type Utterance struct {
	Text     string  // Text to speak
	Rate     float64 // Speech rate multiplier (1.0 = normal)
	Pitch    float64 // Pitch multiplier (1.0 = normal)
	Language string  // Language tag (e.g. "en-US")
	Voice    *Voice  // Voice to use, nil for the synthesizer default
}

// Result reports how an utterance finished.
type Result struct {
	Err error // nil when the utterance completed
}

// Completed reports whether the utterance finished without error.
func (r Result) Completed() bool {
	return r.Err == nil
}

// SpeechStatus is what a Synthesizer reports about itself.
type SpeechStatus int

const (
	// SpeechIdle indicates nothing is being spoken.
	SpeechIdle SpeechStatus = iota
	// SpeechSpeaking indicates audio is being produced.
	SpeechSpeaking
	// SpeechPaused indicates an utterance is suspended.
	SpeechPaused
)

// String returns the string representation of the status.
func (s SpeechStatus) String() string {
	switch s {
	case SpeechIdle:
		return "idle"
	case SpeechSpeaking:
		return "speaking"
	case SpeechPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Voice is one entry of a synthesizer's voice catalog.
type Voice struct {
	ID       string // Voice identifier passed back to the synthesizer
	Name     string // Human-readable name
	Language string // Language tag (e.g. "en-US")
}
