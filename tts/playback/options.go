package playback

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/sentence"
	"github.com/dgnsrekt/readaloud/tts/timeline"
	"github.com/dgnsrekt/readaloud/tts/wakelock"
)

// DefaultResumeGrace is how long a resumed synthesizer has to start
// speaking again before the scheduler resubmits the sentence.
const DefaultResumeGrace = 1500 * time.Millisecond

// settleDelay is how long the watchdog waits for a late completion after
// finding the synthesizer idle rather than paused.
const settleDelay = 250 * time.Millisecond

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNotifier sets the receiver of scheduler notifications.
func WithNotifier(fn tts.Notifier) Option {
	return func(s *Scheduler) {
		s.notify = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWakeLock sets the wake lock manager.
func WithWakeLock(m *wakelock.Manager) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.wake = m
		}
	}
}

// WithSegmenter sets the sentence segmenter used at load time.
func WithSegmenter(seg *sentence.Segmenter) Option {
	return func(s *Scheduler) {
		if seg != nil {
			s.segmenter = seg
		}
	}
}

// WithEstimator sets the timeline estimator.
func WithEstimator(e timeline.Estimator) Option {
	return func(s *Scheduler) {
		s.estimator = e
	}
}

// WithResumeGrace sets the resume watchdog grace period.
func WithResumeGrace(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithEngineName labels errors surfaced from the synthesizer.
func WithEngineName(name string) Option {
	return func(s *Scheduler) {
		s.engine = name
	}
}

// WithConfig applies playback settings from cfg.
func WithConfig(cfg tts.Config) Option {
	return func(s *Scheduler) {
		s.rate = tts.ClampRate(cfg.Rate)
		s.pitch = cfg.Pitch
		s.preferred = cfg.Voice
		s.lang = cfg.Language
		s.engine = cfg.Engine
		if cfg.ResumeGrace > 0 {
			s.grace = cfg.ResumeGrace
		}
		s.segmenter = sentence.NewSegmenter(cfg.Segment.MinLength, cfg.Segment.MaxLength)
		s.estimator = timeline.New(cfg.Timeline.CharsPerSecond)
	}
}
