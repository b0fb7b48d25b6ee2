package ui

import (
	"math"

	"github.com/charmbracelet/bubbles/key"
	"github.com/dgnsrekt/readaloud/tts"
)

// seekStep is how far left and right move through the timeline.
const seekStep = 10 // seconds

// Rates offered by the faster and slower keys.
var rateSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0}

type keyMap struct {
	PlayPause     key.Binding
	Stop          key.Binding
	Replay        key.Binding
	NextParagraph key.Binding
	PrevParagraph key.Binding
	NextSentence  key.Binding
	PrevSentence  key.Binding
	SeekForward   key.Binding
	SeekBackward  key.Binding
	ReadFromHere  key.Binding
	Faster        key.Binding
	Slower        key.Binding
	WakeLock      key.Binding
	Follow        key.Binding
	Copy          key.Binding
	Top           key.Binding
	Bottom        key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		PlayPause:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Stop:          key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Replay:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "read from start")),
		NextParagraph: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next paragraph")),
		PrevParagraph: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous paragraph")),
		NextSentence:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next sentence")),
		PrevSentence:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous sentence")),
		SeekForward:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "forward 10s")),
		SeekBackward:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "back 10s")),
		ReadFromHere:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read from top of screen")),
		Faster:        key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:        key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		WakeLock:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "toggle wake lock")),
		Follow:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle follow")),
		Copy:          key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy sentence")),
		Top:           key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g/home", "go to top")),
		Bottom:        key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G/end", "go to bottom")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.NextParagraph, k.PrevParagraph, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Stop, k.Replay, k.ReadFromHere, k.Faster, k.Slower},
		{k.NextParagraph, k.PrevParagraph, k.NextSentence, k.PrevSentence, k.SeekForward, k.SeekBackward},
		{k.Top, k.Bottom, k.Follow, k.WakeLock, k.Copy, k.Quit},
	}
}

// stepRate returns the next rate step above (dir > 0) or below the current
// rate. Rates between steps snap to the neighbouring step.
func stepRate(current float64, dir int) float64 {
	const epsilon = 0.001

	if dir > 0 {
		for _, r := range rateSteps {
			if r > current+epsilon {
				return r
			}
		}
		return math.Min(current, tts.MaxRate)
	}
	for i := len(rateSteps) - 1; i >= 0; i-- {
		if rateSteps[i] < current-epsilon {
			return rateSteps[i]
		}
	}
	return math.Max(current, tts.MinRate)
}
