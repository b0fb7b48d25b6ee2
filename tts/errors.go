package tts

import (
	"errors"
	"strings"
)

// Common errors for the read-aloud system.
var (
	// Synthesizer errors
	ErrEngineNotAvailable = errors.New("speech engine is not available")
	ErrUnknownEngine      = errors.New("unknown speech engine")
	ErrInterrupted        = errors.New("utterance interrupted")
	ErrCanceled           = errors.New("utterance canceled")
	ErrNothingToSpeak     = errors.New("no text to speak")
	ErrNotSpeaking        = errors.New("nothing is being spoken")
	ErrNotPaused          = errors.New("speech is not paused")

	// Scheduler errors
	ErrClosed = errors.New("playback scheduler is closed")

	// Wake lock errors
	ErrWakeLockUnsupported = errors.New("wake lock not supported on this platform")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsBenign reports whether err is an expected artifact of a deliberate
// cancellation rather than a genuine synthesis failure.
func IsBenign(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrInterrupted) || errors.Is(err, ErrCanceled) {
		return true
	}

	// Engines outside this module only hand us a reason string.
	reason := strings.ToLower(err.Error())
	for _, marker := range []string{"interrupted", "canceled", "cancelled"} {
		if strings.Contains(reason, marker) {
			return true
		}
	}
	return false
}

// EngineError describes a synthesis failure surfaced to the caller.
type EngineError struct {
	Err    error    // The underlying error
	Engine string   // Engine that produced the error
	Action string   // Action being performed (speak, pause, ...)
	Where  Position // Sentence being spoken
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err == nil {
		return "unknown speech error"
	}
	if e.Engine == "" {
		return e.Action + ": " + e.Err.Error()
	}
	return e.Engine + " " + e.Action + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}
