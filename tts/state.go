package tts

// PlaybackState represents the current state of the playback scheduler.
type PlaybackState int

const (
	// StateIdle indicates nothing is being read. Initial state, and the
	// state after Stop or Load.
	StateIdle PlaybackState = iota
	// StatePlaying indicates a sentence is being spoken.
	StatePlaying
	// StatePaused indicates playback is suspended mid-article.
	StatePaused
	// StateEnded indicates the article was read to the end. Terminal until
	// the next Load.
	StateEnded
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Position addresses one sentence in a Matrix.
type Position struct {
	Paragraph int // Paragraph index (0-based)
	Sentence  int // Sentence index within the paragraph (0-based)
}

// Before reports whether p comes before o in document order.
func (p Position) Before(o Position) bool {
	if p.Paragraph != o.Paragraph {
		return p.Paragraph < o.Paragraph
	}
	return p.Sentence < o.Sentence
}

// Matrix is an article split into paragraphs of sentences.
type Matrix [][]string

// Paragraphs returns the number of paragraphs.
func (m Matrix) Paragraphs() int {
	return len(m)
}

// Valid reports whether pos addresses an existing sentence.
func (m Matrix) Valid(pos Position) bool {
	if pos.Paragraph < 0 || pos.Paragraph >= len(m) {
		return false
	}
	return pos.Sentence >= 0 && pos.Sentence < len(m[pos.Paragraph])
}

// Sentence returns the sentence at pos, or "" when pos is out of range.
func (m Matrix) Sentence(pos Position) string {
	if !m.Valid(pos) {
		return ""
	}
	return m[pos.Paragraph][pos.Sentence]
}

// Last returns the position of the final sentence of the article.
func (m Matrix) Last() Position {
	if len(m) == 0 {
		return Position{}
	}
	last := len(m) - 1
	return Position{Paragraph: last, Sentence: max(len(m[last])-1, 0)}
}

// StateSnapshot is the externally visible playback state.
type StateSnapshot struct {
	State            PlaybackState
	IsPlaying        bool
	IsPaused         bool
	CurrentParagraph int
	CurrentSentence  int
	TotalParagraphs  int
}

// IsActive returns true if an article is being read, paused or not.
func (s StateSnapshot) IsActive() bool {
	return s.IsPlaying || s.IsPaused
}

// CanPlay returns true if Play would start or resume playback.
func (s StateSnapshot) CanPlay() bool {
	return (s.State == StateIdle && s.TotalParagraphs > 0) || s.State == StatePaused
}

// CanPause returns true if playback can be paused.
func (s StateSnapshot) CanPause() bool {
	return s.State == StatePlaying
}
