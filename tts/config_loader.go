package tts

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads configuration from Viper, then applies
// READALOUD_* environment overrides.
func LoadConfigFromViper() (Config, error) {
	return LoadConfig(viper.GetViper())
}

// LoadConfig loads configuration from v, then applies READALOUD_*
// environment overrides.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()

	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("language") {
		cfg.Language = v.GetString("language")
	}

	// Voice settings
	if v.IsSet("rate") {
		cfg.Rate = v.GetFloat64("rate")
	}
	if v.IsSet("pitch") {
		cfg.Pitch = v.GetFloat64("pitch")
	}
	if v.IsSet("voice") {
		cfg.Voice = v.GetString("voice")
	}

	// Playback settings
	if v.IsSet("wake_lock") {
		cfg.WakeLock = v.GetBool("wake_lock")
	}
	if v.IsSet("resume_grace") {
		if d, err := time.ParseDuration(v.GetString("resume_grace")); err == nil {
			cfg.ResumeGrace = d
		}
	}

	if v.IsSet("segment.min_length") {
		cfg.Segment.MinLength = v.GetInt("segment.min_length")
	}
	if v.IsSet("segment.max_length") {
		cfg.Segment.MaxLength = v.GetInt("segment.max_length")
	}
	if v.IsSet("timeline.chars_per_second") {
		cfg.Timeline.CharsPerSecond = v.GetFloat64("timeline.chars_per_second")
	}

	// Engines
	if v.IsSet("system.binary") {
		cfg.System.Binary = v.GetString("system.binary")
	}
	if v.IsSet("piper.binary") {
		cfg.Piper.Binary = v.GetString("piper.binary")
	}
	if v.IsSet("piper.model") {
		cfg.Piper.Model = v.GetString("piper.model")
	}
	if v.IsSet("piper.sample_rate") {
		cfg.Piper.SampleRate = v.GetInt("piper.sample_rate")
	}
	if v.IsSet("piper.cache") {
		cfg.Piper.Cache = v.GetBool("piper.cache")
	}
	if v.IsSet("piper.cache_dir") {
		cfg.Piper.CacheDir = v.GetString("piper.cache_dir")
	}
	if v.IsSet("mock.words_per_minute") {
		cfg.Mock.WordsPerMinute = v.GetInt("mock.words_per_minute")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SetDefaults sets default values in Viper for the configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("engine", defaults.Engine)
	viper.SetDefault("language", defaults.Language)
	viper.SetDefault("rate", defaults.Rate)
	viper.SetDefault("pitch", defaults.Pitch)
	viper.SetDefault("wake_lock", defaults.WakeLock)
	viper.SetDefault("resume_grace", defaults.ResumeGrace.String())

	viper.SetDefault("segment.min_length", defaults.Segment.MinLength)
	viper.SetDefault("segment.max_length", defaults.Segment.MaxLength)
	viper.SetDefault("timeline.chars_per_second", defaults.Timeline.CharsPerSecond)

	viper.SetDefault("piper.binary", defaults.Piper.Binary)
	viper.SetDefault("piper.sample_rate", defaults.Piper.SampleRate)
	viper.SetDefault("piper.cache", defaults.Piper.Cache)
	viper.SetDefault("mock.words_per_minute", defaults.Mock.WordsPerMinute)
}
