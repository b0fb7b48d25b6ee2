package tts

// Notifications emitted by the playback scheduler. They are plain values so
// a Bubble Tea program can receive them directly as messages.

// StateChangedMsg is sent after every state-relevant mutation.
type StateChangedMsg struct {
	Snapshot StateSnapshot
}

// ProgressMsg is sent every time a sentence is submitted for speaking.
type ProgressMsg struct {
	Paragraph int // Paragraph being read
	Sentence  int // Sentence being read
	Total     int // Total number of paragraphs
}

// Fraction returns progress through the article (0.0 to 1.0).
func (m ProgressMsg) Fraction() float64 {
	if m.Total <= 0 {
		return 0
	}
	return float64(m.Paragraph) / float64(m.Total)
}

// ParagraphChangedMsg is sent once each time playback enters a paragraph.
type ParagraphChangedMsg struct {
	Index int    // Paragraph index
	Text  string // Paragraph text as loaded
}

// EndedMsg is sent once when the article has been read to the end.
type EndedMsg struct{}

// ErrorMsg reports a genuine synthesis error. Playback state is unchanged;
// the receiver decides whether to skip, retry or stop.
type ErrorMsg struct {
	Err error
}

// VoiceChangedMsg is sent when the selected voice changes.
type VoiceChangedMsg struct {
	Voice    Voice
	Selected bool // false when falling back to the engine default
}

// Notifier receives scheduler notifications in emission order.
type Notifier func(msg any)
