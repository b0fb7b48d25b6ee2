package tts

import (
	"fmt"
	"strings"
	"time"
)

// Rate bounds accepted by the scheduler.
const (
	MinRate = 0.5
	MaxRate = 3.0
)

// Config contains all read-aloud configuration options.
//
// Defaults come from DefaultConfig, not from envDefault tags, so that
// environment variables only override what is actually set.
type Config struct {
	// Engine selection: system, piper or mock
	Engine   string `yaml:"engine" env:"READALOUD_ENGINE"`
	Language string `yaml:"language" env:"READALOUD_LANGUAGE"`

	// Voice settings
	Rate  float64 `yaml:"rate" env:"READALOUD_RATE"`
	Pitch float64 `yaml:"pitch" env:"READALOUD_PITCH"`
	Voice string  `yaml:"voice" env:"READALOUD_VOICE"`

	// Playback settings
	WakeLock    bool          `yaml:"wake_lock" env:"READALOUD_WAKE_LOCK"`
	ResumeGrace time.Duration `yaml:"resume_grace" env:"READALOUD_RESUME_GRACE"`

	Segment  SegmentConfig  `yaml:"segment"`
	Timeline TimelineConfig `yaml:"timeline"`

	// Engine-specific configurations
	System SystemConfig `yaml:"system"`
	Piper  PiperConfig  `yaml:"piper"`
	Mock   MockConfig   `yaml:"mock"`
}

// SegmentConfig tunes sentence segmentation. The values work around
// synthesizers that stumble on very short or very long utterances.
type SegmentConfig struct {
	MinLength int `yaml:"min_length" env:"READALOUD_SEGMENT_MIN_LENGTH"`
	MaxLength int `yaml:"max_length" env:"READALOUD_SEGMENT_MAX_LENGTH"`
}

// TimelineConfig tunes elapsed/remaining time estimation.
type TimelineConfig struct {
	CharsPerSecond float64 `yaml:"chars_per_second" env:"READALOUD_CHARS_PER_SECOND"`
}

// SystemConfig contains settings for the espeak/say subprocess engine.
type SystemConfig struct {
	// Binary overrides the detected speech binary (espeak-ng, espeak, say).
	Binary string `yaml:"binary" env:"READALOUD_SYSTEM_BINARY"`
}

// PiperConfig contains Piper engine specific settings.
type PiperConfig struct {
	Binary     string `yaml:"binary" env:"READALOUD_PIPER_BINARY"`
	Model      string `yaml:"model" env:"READALOUD_PIPER_MODEL"`
	SampleRate int    `yaml:"sample_rate" env:"READALOUD_PIPER_SAMPLE_RATE"`

	// Synthesized clips are kept so replayed sentences skip synthesis.
	// An empty CacheDir keeps them in memory only.
	Cache    bool   `yaml:"cache" env:"READALOUD_PIPER_CACHE"`
	CacheDir string `yaml:"cache_dir" env:"READALOUD_PIPER_CACHE_DIR"`
}

// MockConfig contains settings for the in-memory engine.
type MockConfig struct {
	WordsPerMinute int `yaml:"words_per_minute" env:"READALOUD_MOCK_WORDS_PER_MINUTE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:      "system",
		Language:    "en",
		Rate:        1.0,
		Pitch:       1.0,
		WakeLock:    true,
		ResumeGrace: 1500 * time.Millisecond,

		Segment: SegmentConfig{
			MinLength: 5,
			MaxLength: 220,
		},
		Timeline: TimelineConfig{
			CharsPerSecond: 15,
		},

		Piper: PiperConfig{
			Binary:     "piper",
			SampleRate: 22050,
			Cache:      true,
		},
		Mock: MockConfig{
			WordsPerMinute: 150,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"system", "piper", "mock"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine %q must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if c.Language == "" {
		return fmt.Errorf("%w: language cannot be empty", ErrInvalidConfig)
	}

	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("%w: rate must be between %.1f and %.1f, got %.2f", ErrInvalidConfig, MinRate, MaxRate, c.Rate)
	}

	if c.Pitch <= 0 || c.Pitch > 2.0 {
		return fmt.Errorf("%w: pitch must be between 0.0 and 2.0, got %.2f", ErrInvalidConfig, c.Pitch)
	}

	if c.ResumeGrace < 100*time.Millisecond || c.ResumeGrace > 10*time.Second {
		return fmt.Errorf("%w: resume_grace must be between 100ms and 10s, got %v", ErrInvalidConfig, c.ResumeGrace)
	}

	if c.Segment.MinLength < 0 {
		return fmt.Errorf("%w: segment.min_length cannot be negative", ErrInvalidConfig)
	}
	if c.Segment.MaxLength < 20 {
		return fmt.Errorf("%w: segment.max_length must be at least 20, got %d", ErrInvalidConfig, c.Segment.MaxLength)
	}
	if c.Segment.MinLength >= c.Segment.MaxLength {
		return fmt.Errorf("%w: segment.min_length must be below segment.max_length", ErrInvalidConfig)
	}

	if c.Timeline.CharsPerSecond <= 0 {
		return fmt.Errorf("%w: timeline.chars_per_second must be positive", ErrInvalidConfig)
	}

	switch c.Engine {
	case "piper":
		if c.Piper.Binary == "" {
			return fmt.Errorf("%w: piper binary path cannot be empty", ErrInvalidConfig)
		}
		if c.Piper.Model == "" {
			return fmt.Errorf("%w: piper model cannot be empty", ErrInvalidConfig)
		}
		if c.Piper.SampleRate < 8000 || c.Piper.SampleRate > 48000 {
			return fmt.Errorf("%w: piper sample_rate must be between 8000 and 48000, got %d", ErrInvalidConfig, c.Piper.SampleRate)
		}
	case "mock":
		if c.Mock.WordsPerMinute < 50 || c.Mock.WordsPerMinute > 500 {
			return fmt.Errorf("%w: mock words_per_minute must be between 50 and 500, got %d", ErrInvalidConfig, c.Mock.WordsPerMinute)
		}
	}

	return nil
}

// ClampRate bounds rate to [MinRate, MaxRate]. Non-positive rates map to 1.0.
func ClampRate(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1.0
	case rate < MinRate:
		return MinRate
	case rate > MaxRate:
		return MaxRate
	default:
		return rate
	}
}
