package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dustin/go-humanize"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.state == pagerStateStatusMessage
	isError := showStatusMessage && m.statusMessage.isError

	noteStyle, posStyle, helpStyle := statusBarNoteStyle, statusBarPosStyle, statusBarHelpStyle
	switch {
	case isError:
		noteStyle, posStyle, helpStyle = statusBarErrorStyle, statusBarErrorStyle, statusBarErrorStyle
	case showStatusMessage:
		noteStyle, posStyle, helpStyle = statusBarMessageStyle, statusBarMessagePosStyle, statusBarMessageHelpStyle
	}

	// Logo
	logo := logoView()

	// Position in the article
	position := posStyle(" " + m.positionNote() + " ")

	// "Help" note
	helpNote := helpStyle(" ? Help ")

	// Note
	var note string
	if showStatusMessage {
		note = m.statusMessage.message
	} else {
		note = m.playbackNote()
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = noteStyle(note)

	// Empty space
	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := noteStyle(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		position,
		helpNote,
	)
}

// playbackNote describes the player state, the article and the settings.
func (m model) playbackNote() string {
	parts := []string{m.stateIcon()}
	if m.title != "" {
		parts = append(parts, m.title)
	}
	parts = append(parts, humanize.Comma(int64(m.words))+" words", formatRate(m.rate))
	if m.voice != "" {
		parts = append(parts, m.voice)
	}
	if m.wakeLock && m.snapshot.IsPlaying {
		parts = append(parts, "☼")
	}
	return strings.Join(parts, " · ")
}

func (m model) stateIcon() string {
	switch m.snapshot.State {
	case tts.StatePlaying:
		return m.spinner.View()
	case tts.StatePaused:
		return "⏸"
	case tts.StateEnded:
		return "✓"
	default:
		return "■"
	}
}

// positionNote shows the paragraph being read and the time left.
func (m model) positionNote() string {
	total := m.snapshot.TotalParagraphs
	if total == 0 {
		return "empty"
	}
	return fmt.Sprintf("¶ %d/%d  %s left",
		m.snapshot.CurrentParagraph+1,
		total,
		formatDuration(m.estimate.Remaining()),
	)
}

func formatRate(rate float64) string {
	return humanize.FtoaWithDigits(rate, 2) + "×"
}

// formatDuration renders d as m:ss, or h:mm:ss past an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	mins := int(d%time.Hour) / int(time.Minute)
	secs := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func (m model) helpView() string {
	s := "\n" + m.help.FullHelpView(m.keys.FullHelp()) + "\n"
	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}
