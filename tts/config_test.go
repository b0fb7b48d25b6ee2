package tts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestDefaultConfig tests that default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if cfg.Engine != "system" {
		t.Errorf("Default engine should be system, got %s", cfg.Engine)
	}

	if !cfg.WakeLock {
		t.Error("Wake lock should be enabled by default")
	}
}

// TestConfigValidation tests configuration validation.
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid engine",
			modify:  func(c *Config) { c.Engine = "invalid" },
			wantErr: true,
			errMsg:  "must be one of",
		},
		{
			name:   "engine is case insensitive",
			modify: func(c *Config) { c.Engine = "MOCK" },
		},
		{
			name:    "empty language",
			modify:  func(c *Config) { c.Language = "" },
			wantErr: true,
			errMsg:  "language cannot be empty",
		},
		{
			name:    "rate too high",
			modify:  func(c *Config) { c.Rate = 3.5 },
			wantErr: true,
			errMsg:  "rate must be between",
		},
		{
			name:    "rate too low",
			modify:  func(c *Config) { c.Rate = 0.1 },
			wantErr: true,
			errMsg:  "rate must be between",
		},
		{
			name:   "rate at bounds",
			modify: func(c *Config) { c.Rate = MaxRate },
		},
		{
			name:    "zero pitch",
			modify:  func(c *Config) { c.Pitch = 0 },
			wantErr: true,
			errMsg:  "pitch must be between",
		},
		{
			name:    "resume grace too short",
			modify:  func(c *Config) { c.ResumeGrace = time.Millisecond },
			wantErr: true,
			errMsg:  "resume_grace",
		},
		{
			name:    "max length too small",
			modify:  func(c *Config) { c.Segment.MaxLength = 10 },
			wantErr: true,
			errMsg:  "segment.max_length",
		},
		{
			name: "min length above max length",
			modify: func(c *Config) {
				c.Segment.MinLength = 100
				c.Segment.MaxLength = 50
			},
			wantErr: true,
			errMsg:  "segment.min_length",
		},
		{
			name:    "non-positive reading speed",
			modify:  func(c *Config) { c.Timeline.CharsPerSecond = 0 },
			wantErr: true,
			errMsg:  "chars_per_second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Error %q should contain %q", err, tt.errMsg)
			}
		})
	}
}

// TestEngineConfigValidation tests the checks that only apply to the
// selected engine.
func TestEngineConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name: "piper without model",
			modify: func(c *Config) {
				c.Engine = "piper"
			},
			wantErr: true,
		},
		{
			name: "piper with model",
			modify: func(c *Config) {
				c.Engine = "piper"
				c.Piper.Model = "en_US-lessac-medium.onnx"
			},
		},
		{
			name: "piper sample rate out of range",
			modify: func(c *Config) {
				c.Engine = "piper"
				c.Piper.Model = "voice.onnx"
				c.Piper.SampleRate = 4000
			},
			wantErr: true,
		},
		{
			name: "piper settings ignored for other engines",
			modify: func(c *Config) {
				c.Piper.Binary = ""
			},
		},
		{
			name: "mock words per minute out of range",
			modify: func(c *Config) {
				c.Engine = "mock"
				c.Mock.WordsPerMinute = 10
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClampRate(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{-2, 1},
		{0.2, MinRate},
		{1.5, 1.5},
		{9, MaxRate},
	}
	for _, tt := range tests {
		if got := ClampRate(tt.in); got != tt.want {
			t.Errorf("ClampRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestLoadConfig tests loading configuration from a Viper instance.
func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.Set("engine", "piper")
	v.Set("language", "de")
	v.Set("rate", 1.5)
	v.Set("voice", "Anna")
	v.Set("wake_lock", false)
	v.Set("resume_grace", "2s")
	v.Set("segment.max_length", 120)
	v.Set("piper.model", "test-model.onnx")
	v.Set("piper.cache", false)
	v.Set("mock.words_per_minute", 200)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine != "piper" {
		t.Errorf("Engine = %v, want piper", cfg.Engine)
	}
	if cfg.Language != "de" {
		t.Errorf("Language = %v, want de", cfg.Language)
	}
	if cfg.Rate != 1.5 {
		t.Errorf("Rate = %v, want 1.5", cfg.Rate)
	}
	if cfg.Voice != "Anna" {
		t.Errorf("Voice = %v, want Anna", cfg.Voice)
	}
	if cfg.WakeLock {
		t.Error("WakeLock should be disabled")
	}
	if cfg.ResumeGrace != 2*time.Second {
		t.Errorf("ResumeGrace = %v, want 2s", cfg.ResumeGrace)
	}
	if cfg.Segment.MaxLength != 120 {
		t.Errorf("Segment.MaxLength = %v, want 120", cfg.Segment.MaxLength)
	}
	if cfg.Segment.MinLength != DefaultConfig().Segment.MinLength {
		t.Errorf("Unset values should keep their defaults, got min length %v", cfg.Segment.MinLength)
	}
	if cfg.Piper.Model != "test-model.onnx" {
		t.Errorf("Piper.Model = %v, want test-model.onnx", cfg.Piper.Model)
	}
	if cfg.Piper.Cache {
		t.Error("Piper.Cache should be disabled")
	}
	if cfg.Mock.WordsPerMinute != 200 {
		t.Errorf("Mock.WordsPerMinute = %v, want 200", cfg.Mock.WordsPerMinute)
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("READALOUD_ENGINE", "mock")
	t.Setenv("READALOUD_RATE", "2")
	t.Setenv("READALOUD_RESUME_GRACE", "750ms")

	v := viper.New()
	v.Set("engine", "system")
	v.Set("rate", 1.25)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Engine != "mock" {
		t.Errorf("Environment should win, got engine %v", cfg.Engine)
	}
	if cfg.Rate != 2 {
		t.Errorf("Rate = %v, want 2", cfg.Rate)
	}
	if cfg.ResumeGrace != 750*time.Millisecond {
		t.Errorf("ResumeGrace = %v, want 750ms", cfg.ResumeGrace)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	v := viper.New()
	v.Set("rate", 7)

	if _, err := LoadConfig(v); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

// TestSetDefaults tests that SetDefaults properly sets Viper defaults.
func TestSetDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()

	for _, key := range []string{"engine", "language", "rate", "pitch", "wake_lock", "resume_grace", "piper.sample_rate"} {
		if !viper.IsSet(key) {
			t.Errorf("%s default not set", key)
		}
	}

	cfg, err := LoadConfigFromViper()
	if err != nil {
		t.Fatalf("LoadConfigFromViper() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Defaults should round trip, got %+v", cfg)
	}
}
