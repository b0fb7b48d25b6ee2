//go:build nocgo

package audio

import "errors"

// errNoAudio is returned by every stub operation.
var errNoAudio = errors.New("audio not available in nocgo build")

// Player is a stub for builds without CGO.
type Player struct{}

// NewPlayer always fails in nocgo builds.
func NewPlayer(cfg Config) (*Player, error) {
	return nil, errNoAudio
}

func (p *Player) Play(pcm []byte, done func(error)) error {
	return errNoAudio
}

func (p *Player) Pause() error {
	return errNoAudio
}

func (p *Player) Resume() error {
	return errNoAudio
}

func (p *Player) Stop() error {
	return nil
}

func (p *Player) State() PlayerState {
	return StateStopped
}

func (p *Player) Close() error {
	return nil
}
