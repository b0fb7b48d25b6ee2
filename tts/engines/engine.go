// Package engines opens the speech synthesizer named in the configuration.
package engines

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines/mock"
	"github.com/dgnsrekt/readaloud/tts/engines/piper"
	"github.com/dgnsrekt/readaloud/tts/engines/system"
	"github.com/dgnsrekt/readaloud/utils"
)

// Names lists the engines Open understands.
var Names = []string{"system", "piper", "mock"}

// Engine is an open synthesizer and the resources it holds.
type Engine struct {
	tts.Synthesizer

	// Name of the engine actually opened. It differs from the configured
	// engine after a fallback.
	Name string

	closers []io.Closer
}

// Close releases the audio device and clip cache, if any.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		c := e.closers[i]
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// open starts the engine called name without falling back.
func open(name string, cfg tts.Config, logger *log.Logger) (*Engine, error) {
	switch name {
	case "mock":
		return &Engine{Synthesizer: mock.NewTimed(cfg.Mock), Name: name}, nil

	case "system":
		s, err := system.New(cfg.System, logger.WithPrefix("system"))
		if err != nil {
			return nil, err
		}
		return &Engine{Synthesizer: s, Name: name}, nil

	case "piper":
		return openPiper(cfg.Piper, logger.WithPrefix("piper"))
	}

	return nil, fmt.Errorf("%w: %q", tts.ErrUnknownEngine, name)
}

func openPiper(cfg tts.PiperConfig, logger *log.Logger) (*Engine, error) {
	// Check before touching the audio device
	if err := piper.Available(cfg); err != nil {
		return nil, err
	}

	player, err := audio.NewPlayer(audio.Config{SampleRate: cfg.SampleRate, Channels: 1})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrEngineNotAvailable, err)
	}
	e := &Engine{Name: "piper", closers: []io.Closer{player}}

	p, err := piper.New(cfg, player, logger)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Synthesizer = p

	if cfg.Cache {
		cc := cache.DefaultConfig()
		if cfg.CacheDir != "" {
			cc.DiskPath = utils.ExpandPath(cfg.CacheDir)
		}
		clips, err := cache.New(cc, logger.WithPrefix("cache"))
		if err != nil {
			// Synthesis still works, just without reuse
			logger.Warn("Clip cache disabled", "error", err)
		} else {
			p.SetClipStore(clips)
			e.closers = append(e.closers, clips)
		}
	}

	return e, nil
}
