// Package timeline estimates elapsed and total reading time for an article.
//
// Estimates are derived from character counts and a fixed speaking speed.
// They do not reflect real audio duration and will drift from what the
// synthesizer actually produces; use them for progress display and coarse
// seeking only.
package timeline

import (
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/readaloud/tts"
)

// DefaultCharsPerSecond is the baseline speaking speed at rate 1.0.
const DefaultCharsPerSecond = 15.0

// Estimate is an approximate timeline for an article.
type Estimate struct {
	Duration time.Duration // Estimated time to read the whole article
	Position time.Duration // Estimated time consumed before the current sentence
}

// Remaining returns the estimated time left.
func (e Estimate) Remaining() time.Duration {
	return max(e.Duration-e.Position, 0)
}

// Fraction returns progress through the article (0.0 to 1.0).
func (e Estimate) Fraction() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return min(float64(e.Position)/float64(e.Duration), 1)
}

// Estimator converts between sentence positions and estimated time.
type Estimator struct {
	CharsPerSecond float64
}

// New creates an estimator. Non-positive speeds fall back to
// DefaultCharsPerSecond.
func New(charsPerSecond float64) Estimator {
	if charsPerSecond <= 0 {
		charsPerSecond = DefaultCharsPerSecond
	}
	return Estimator{CharsPerSecond: charsPerSecond}
}

// Compute estimates the article duration and the time consumed by every
// sentence before pos.
func (e Estimator) Compute(m tts.Matrix, pos tts.Position, rate float64) Estimate {
	var total, consumed int
	for pi, paragraph := range m {
		for si, sentence := range paragraph {
			n := utf8.RuneCountInString(sentence)
			total += n
			if (tts.Position{Paragraph: pi, Sentence: si}).Before(pos) {
				consumed += n
			}
		}
	}

	return Estimate{
		Duration: e.toDuration(total, rate),
		Position: e.toDuration(consumed, rate),
	}
}

// PositionAt maps target back to the sentence being spoken at that time.
// Targets before the start map to the first sentence; targets at or past
// the end map to the last sentence.
func (e Estimator) PositionAt(m tts.Matrix, target time.Duration, rate float64) tts.Position {
	if target <= 0 {
		return tts.Position{}
	}

	offset := target.Seconds() * e.speed(rate)
	cumulative := 0.0
	for pi, paragraph := range m {
		for si, sentence := range paragraph {
			cumulative += float64(utf8.RuneCountInString(sentence))
			if cumulative > offset {
				return tts.Position{Paragraph: pi, Sentence: si}
			}
		}
	}

	return m.Last()
}

func (e Estimator) toDuration(chars int, rate float64) time.Duration {
	return time.Duration(float64(chars) / e.speed(rate) * float64(time.Second))
}

// speed returns characters per second at the given rate.
func (e Estimator) speed(rate float64) float64 {
	cps := e.CharsPerSecond
	if cps <= 0 {
		cps = DefaultCharsPerSecond
	}
	return cps * tts.ClampRate(rate)
}
