//go:build !nocgo

package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often a playing clip is checked for completion.
const pollInterval = 20 * time.Millisecond

// oto allows a single context per process.
var (
	contextOnce   sync.Once
	sharedContext *oto.Context
	sharedConfig  Config
	contextErr    error
)

func audioContext(cfg Config) (*oto.Context, error) {
	contextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			contextErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		sharedContext = ctx
		sharedConfig = cfg
	})

	if contextErr != nil {
		return nil, contextErr
	}
	if sharedConfig != cfg {
		return nil, fmt.Errorf("audio context already open at %d Hz/%d ch", sharedConfig.SampleRate, sharedConfig.Channels)
	}
	return sharedContext, nil
}

// Player plays one PCM clip at a time through oto.
type Player struct {
	context *oto.Context
	config  Config

	mu      sync.Mutex
	state   PlayerState
	current *clip
}

// clip is a clip being played. The PCM data is kept referenced until
// playback ends.
type clip struct {
	player *oto.Player
	data   []byte
	done   func(error)
	stop   chan struct{}
}

// NewPlayer opens the audio device.
func NewPlayer(cfg Config) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, err := audioContext(cfg)
	if err != nil {
		return nil, err
	}

	return &Player{context: ctx, config: cfg}, nil
}

// Play starts playing pcm, stopping any clip already playing. done is
// called once when the clip ends: with nil when it played to the end, with
// ErrStopped when it was stopped or replaced.
func (p *Player) Play(pcm []byte, done func(error)) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return ErrClosed
	}
	previous := p.stopLocked()

	data := make([]byte, len(pcm))
	copy(data, pcm)

	c := &clip{
		player: p.context.NewPlayer(bytes.NewReader(data)),
		data:   data,
		done:   done,
		stop:   make(chan struct{}),
	}
	c.player.Play()
	p.current = c
	p.state = StatePlaying
	p.mu.Unlock()

	if previous != nil {
		previous.done(ErrStopped)
	}

	go p.watch(c)
	return nil
}

// watch reports the end of c.
func (p *Player) watch(c *clip) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.current != c {
			p.mu.Unlock()
			return
		}
		if p.state == StatePaused || c.player.IsPlaying() {
			p.mu.Unlock()
			continue
		}

		err := c.player.Err()
		_ = c.player.Close()
		p.current = nil
		p.state = StateStopped
		p.mu.Unlock()

		c.done(err)
		return
	}
}

// Pause pauses the current clip.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", p.state)
	}
	p.current.player.Pause()
	p.state = StatePaused
	return nil
}

// Resume continues a paused clip.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", p.state)
	}
	p.current.player.Play()
	p.state = StatePlaying
	return nil
}

// Stop ends the current clip, if any.
func (p *Player) Stop() error {
	p.mu.Lock()
	c := p.stopLocked()
	p.mu.Unlock()

	if c != nil {
		c.done(ErrStopped)
	}
	return nil
}

// stopLocked detaches the current clip. Callers hold p.mu and must report
// ErrStopped to the returned clip after unlocking.
func (p *Player) stopLocked() *clip {
	c := p.current
	if c == nil {
		return nil
	}

	close(c.stop)
	c.player.Pause()
	_ = c.player.Close()
	p.current = nil
	if p.state != StateClosed {
		p.state = StateStopped
	}
	return c
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close stops playback. The shared oto context stays open for the life of
// the process.
func (p *Player) Close() error {
	p.mu.Lock()
	c := p.stopLocked()
	p.state = StateClosed
	p.mu.Unlock()

	if c != nil {
		c.done(ErrStopped)
	}
	return nil
}
