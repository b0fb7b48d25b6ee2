// Package confwatch reloads the config file while the reader is open and
// reports settings that take effect on the next sentence.
package confwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between two reloads. Editors often
// write a file several times when saving it.
const DefaultInterval = 250 * time.Millisecond

// Change describes a reloaded config that differs from the previous one.
type Change struct {
	Config tts.Config

	Rate     bool
	Pitch    bool
	Voice    bool
	WakeLock bool
}

// Any reports whether a live setting changed.
func (c Change) Any() bool {
	return c.Rate || c.Pitch || c.Voice || c.WakeLock
}

// Diff compares two configs.
func Diff(old, cur tts.Config) Change {
	return Change{
		Config:   cur,
		Rate:     old.Rate != cur.Rate,
		Pitch:    old.Pitch != cur.Pitch,
		Voice:    old.Voice != cur.Voice,
		WakeLock: old.WakeLock != cur.WakeLock,
	}
}

// Watcher watches one config file.
type Watcher struct {
	path    string
	current tts.Config
	limiter *rate.Limiter
	logger  *log.Logger
}

// New creates a watcher for path. current is the config already in use.
func New(path string, current tts.Config, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default().WithPrefix("confwatch")
	}
	return &Watcher{
		path:    filepath.Clean(path),
		current: current,
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		logger:  logger,
	}
}

// Run watches until ctx is done, calling onChange from its own goroutine
// whenever a reload changes a live setting. Invalid files are logged and
// ignored.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files by renaming over them
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	w.logger.Info("fsnotify watching dir", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)

			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			drain(watcher.Events)
			w.reload(onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// drain discards queued events so a burst causes a single reload.
func drain(events <-chan fsnotify.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

func (w *Watcher) reload(onChange func(Change)) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Ignoring config change", "path", w.path, "err", err)
		return
	}

	change := Diff(w.current, cfg)
	w.current = cfg
	if change.Any() {
		w.logger.Debug("Config changed", "rate", cfg.Rate, "pitch", cfg.Pitch, "voice", cfg.Voice)
		onChange(change)
	}
}

// Load reads a config file with a fresh viper instance.
func Load(path string) (tts.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return tts.Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return tts.LoadConfig(v)
}
