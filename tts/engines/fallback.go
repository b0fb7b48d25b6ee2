package engines

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
)

// fallbacks lists, per engine, the engines tried next when it is not
// installed. The mock engine is never a fallback since it makes no sound.
var fallbacks = map[string][]string{
	"piper": {"system"},
}

// Open starts the engine named by cfg.Engine. If that engine is not
// installed its fallbacks are tried in order; the error of the configured
// engine is returned when none of them is available either.
func Open(cfg tts.Config, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.Default()
	}

	e, err := open(cfg.Engine, cfg, logger)
	if err == nil || !errors.Is(err, tts.ErrEngineNotAvailable) {
		return e, err
	}

	for _, name := range fallbacks[cfg.Engine] {
		logger.Warn("Speech engine not available, falling back", "engine", cfg.Engine, "fallback", name, "error", err)
		if e, ferr := open(name, cfg, logger); ferr == nil {
			return e, nil
		} else if !errors.Is(ferr, tts.ErrEngineNotAvailable) {
			return nil, ferr
		}
	}

	return nil, err
}
