package ui

import (
	"strings"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/muesli/reflow/wordwrap"
)

const gutterWidth = 2

// rendered is the article laid out for the viewport.
type rendered struct {
	content string
	offsets []int // first line of each paragraph
	lines   int
}

// paragraphAt returns the paragraph shown on line, or the last paragraph
// starting at or before it.
func (r rendered) paragraphAt(line int) int {
	index := 0
	for i, off := range r.offsets {
		if off > line {
			break
		}
		index = i
	}
	return index
}

// renderArticle wraps each paragraph of m to width. When active, the
// paragraph at pos gets a gutter mark, the sentence at pos is highlighted
// and the paragraphs before it are dimmed.
func renderArticle(title string, m tts.Matrix, pos tts.Position, active bool, width int) rendered {
	textWidth := max(width-gutterWidth, 10)

	var (
		b    strings.Builder
		r    rendered
		line int
	)

	if title != "" {
		b.WriteString(titleStyle.Render(title))
		b.WriteString("\n\n")
		line = 2
	}

	for p, sentences := range m {
		if p > 0 {
			b.WriteString("\n\n")
			line += 2
		}
		r.offsets = append(r.offsets, line)

		current := active && p == pos.Paragraph
		words := make([]string, 0, len(sentences)*8)
		for s, sentence := range sentences {
			for _, w := range strings.Fields(sentence) {
				switch {
				case current && s == pos.Sentence:
					w = sentenceStyle.Render(w)
				case active && p < pos.Paragraph:
					w = readStyle.Render(w)
				}
				words = append(words, w)
			}
		}

		gutter := strings.Repeat(" ", gutterWidth)
		if current {
			gutter = gutterStyle.Render("▌") + " "
		}

		wrapped := strings.Split(wordwrap.String(strings.Join(words, " "), textWidth), "\n")
		for i, l := range wrapped {
			if i > 0 {
				b.WriteByte('\n')
				line++
			}
			b.WriteString(gutter)
			b.WriteString(l)
		}
	}

	r.content = b.String()
	r.lines = line + 1
	return r
}

// wordCount counts the words in m.
func wordCount(m tts.Matrix) int {
	n := 0
	for _, sentences := range m {
		for _, s := range sentences {
			n += len(strings.Fields(s))
		}
	}
	return n
}
