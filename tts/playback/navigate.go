package playback

import (
	"strings"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/sentence"
)

// Position arithmetic over a sentence matrix. Every helper reports false
// when the move would leave the article, in which case the caller treats
// the request as a no-op.

// buildMatrix segments paragraphs, dropping those with nothing to read.
func buildMatrix(seg *sentence.Segmenter, paragraphs []string) (tts.Matrix, []string) {
	matrix := make(tts.Matrix, 0, len(paragraphs))
	kept := make([]string, 0, len(paragraphs))

	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		matrix = append(matrix, seg.Segment(p))
		kept = append(kept, p)
	}

	return matrix, kept
}

// nextSentence returns the sentence after pos, crossing into the next
// paragraph when pos is the last sentence of its paragraph.
func nextSentence(m tts.Matrix, pos tts.Position) (tts.Position, bool) {
	if !m.Valid(pos) {
		return pos, false
	}
	if pos.Sentence+1 < len(m[pos.Paragraph]) {
		return tts.Position{Paragraph: pos.Paragraph, Sentence: pos.Sentence + 1}, true
	}
	return nextParagraph(m, pos)
}

// prevSentence returns the sentence before pos. Crossing back into the
// previous paragraph lands on its first sentence, like a paragraph skip.
func prevSentence(m tts.Matrix, pos tts.Position) (tts.Position, bool) {
	if !m.Valid(pos) {
		return pos, false
	}
	if pos.Sentence > 0 {
		return tts.Position{Paragraph: pos.Paragraph, Sentence: pos.Sentence - 1}, true
	}
	return prevParagraph(m, pos)
}

// nextParagraph returns the start of the paragraph after pos.
func nextParagraph(m tts.Matrix, pos tts.Position) (tts.Position, bool) {
	return paragraphStart(m, pos.Paragraph+1)
}

// prevParagraph returns the start of the paragraph before pos.
func prevParagraph(m tts.Matrix, pos tts.Position) (tts.Position, bool) {
	return paragraphStart(m, pos.Paragraph-1)
}

// paragraphStart returns the first sentence of paragraph index.
func paragraphStart(m tts.Matrix, index int) (tts.Position, bool) {
	if index < 0 || index >= len(m) {
		return tts.Position{}, false
	}
	return tts.Position{Paragraph: index}, true
}
