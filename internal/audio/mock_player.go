package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MockPlayer simulates clip playback without producing sound. Clips play
// until the test calls Finish or Stop.
type MockPlayer struct {
	mu      sync.Mutex
	state   PlayerState
	clip    []byte
	done    func(error)
	clips   [][]byte
	playErr error

	// Metrics for testing
	playCount   atomic.Int64
	pauseCount  atomic.Int64
	resumeCount atomic.Int64
	stopCount   atomic.Int64
}

// NewMockPlayer creates a stopped mock player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play starts a simulated clip, replacing any clip already playing.
func (mp *MockPlayer) Play(pcm []byte, done func(error)) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	mp.mu.Lock()
	if mp.state == StateClosed {
		mp.mu.Unlock()
		return ErrClosed
	}
	if mp.playErr != nil {
		mp.mu.Unlock()
		return mp.playErr
	}

	previous := mp.done
	mp.clip = append([]byte(nil), pcm...)
	mp.clips = append(mp.clips, mp.clip)
	mp.done = done
	mp.state = StatePlaying
	mp.mu.Unlock()

	mp.playCount.Add(1)
	if previous != nil {
		previous(ErrStopped)
	}
	return nil
}

// Pause pauses the current clip.
func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", mp.state)
	}
	mp.state = StatePaused
	mp.pauseCount.Add(1)
	return nil
}

// Resume continues a paused clip.
func (mp *MockPlayer) Resume() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", mp.state)
	}
	mp.state = StatePlaying
	mp.resumeCount.Add(1)
	return nil
}

// Stop ends the current clip.
func (mp *MockPlayer) Stop() error {
	mp.stopCount.Add(1)
	mp.end(ErrStopped, StateStopped)
	return nil
}

// Close stops playback and rejects further clips.
func (mp *MockPlayer) Close() error {
	mp.end(ErrStopped, StateClosed)
	return nil
}

// State returns the current player state.
func (mp *MockPlayer) State() PlayerState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state
}

// Test control methods

// Finish ends the current clip as if it played to the end. It returns
// false if no clip was playing.
func (mp *MockPlayer) Finish() bool {
	mp.mu.Lock()
	active := mp.done != nil && mp.state == StatePlaying
	mp.mu.Unlock()

	if !active {
		return false
	}
	mp.end(nil, StateStopped)
	return true
}

// SetPlayError makes Play fail with err. Nil clears it.
func (mp *MockPlayer) SetPlayError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

// Clips returns every clip passed to Play.
func (mp *MockPlayer) Clips() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([][]byte(nil), mp.clips...)
}

// Counts returns how often Play, Pause, Resume and Stop were called.
func (mp *MockPlayer) Counts() (plays, pauses, resumes, stops int64) {
	return mp.playCount.Load(), mp.pauseCount.Load(), mp.resumeCount.Load(), mp.stopCount.Load()
}

func (mp *MockPlayer) end(err error, state PlayerState) {
	mp.mu.Lock()
	done := mp.done
	mp.done = nil
	mp.clip = nil
	if mp.state != StateClosed {
		mp.state = state
	}
	mp.mu.Unlock()

	if done != nil {
		done(err)
	}
}
