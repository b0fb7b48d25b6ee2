package audio

import (
	"errors"
	"fmt"
	"time"
)

// Common errors.
var (
	ErrStopped    = errors.New("playback stopped")
	ErrEmptyAudio = errors.New("audio data is empty")
	ErrClosed     = errors.New("player is closed")
)

// PlayerState represents the current state of the player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
	StateClosed
)

// String returns the string representation of the state.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config contains configuration for the audio player. Samples are always
// signed 16-bit little endian.
type Config struct {
	SampleRate int // Samples per second
	Channels   int // 1 = mono, 2 = stereo
}

// DefaultConfig returns the format Piper's medium voices produce.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		Channels:   1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fmt.Errorf("sample rate must be between 8000 and 48000 Hz, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", c.Channels)
	}
	return nil
}

// Duration returns the play time of size bytes of PCM in this format.
func (c Config) Duration(size int) time.Duration {
	frame := c.Channels * 2
	if frame == 0 || c.SampleRate == 0 {
		return 0
	}
	samples := size / frame
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}
