// Package sentence splits paragraph text into utterance-sized sentences.
package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default limits, in runes.
const (
	DefaultMinLength = 5
	DefaultMaxLength = 220
)

// Segmenter splits paragraphs into sentences suitable for a speech engine.
//
// Fragments that look like abbreviations ("Dr.", "e.g.", "J.") or are
// shorter than MinLength are merged into the following sentence, because
// several engines mispronounce or skip such fragments when spoken alone.
// Merging never produces a unit longer than MaxLength; a single sentence
// that is already longer is emitted whole rather than split.
type Segmenter struct {
	MinLength int
	MaxLength int

	abbreviations map[string]bool
}

// NewSegmenter creates a segmenter with the given limits. A negative
// minLength or a non-positive maxLength falls back to its default. A zero
// minLength turns off merging of short sentences.
func NewSegmenter(minLength, maxLength int) *Segmenter {
	if minLength < 0 {
		minLength = DefaultMinLength
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Segmenter{
		MinLength:     minLength,
		MaxLength:     maxLength,
		abbreviations: makeAbbreviationMap(),
	}
}

// Default returns a segmenter with the default limits.
func Default() *Segmenter {
	return NewSegmenter(DefaultMinLength, DefaultMaxLength)
}

// Segment splits text into sentences. Empty input yields a single empty
// sentence; text without terminal punctuation yields itself.
func (s *Segmenter) Segment(text string) []string {
	fragments := split(text)
	if len(fragments) == 0 {
		return []string{""}
	}
	return s.merge(fragments)
}

// split cuts text after runs of terminal punctuation that are followed by
// whitespace or the end of the text.
func split(text string) []string {
	runes := []rune(text)
	var fragments []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}

		// Collect all punctuation, then closing quotes and brackets
		end := i + 1
		for end < len(runes) && isTerminal(runes[end]) {
			end++
		}
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}

		// "3.14", "U.S" and "example.com" are not boundaries
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}

		if fragment := strings.TrimSpace(string(runes[start:end])); fragment != "" {
			fragments = append(fragments, fragment)
		}
		start = end
		i = end - 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		fragments = append(fragments, rest)
	}

	return fragments
}

// merge folds short and abbreviation-like fragments forward.
func (s *Segmenter) merge(fragments []string) []string {
	sentences := make([]string, 0, len(fragments))
	current := ""

	for _, fragment := range fragments {
		if current == "" {
			current = fragment
			continue
		}

		if s.needsMerge(current) {
			joined := current + " " + fragment
			if utf8.RuneCountInString(joined) <= s.MaxLength {
				current = joined
				continue
			}
		}

		sentences = append(sentences, current)
		current = fragment
	}

	if current != "" {
		sentences = append(sentences, current)
	}

	return sentences
}

// needsMerge reports whether unit cannot safely be spoken on its own.
func (s *Segmenter) needsMerge(unit string) bool {
	if utf8.RuneCountInString(unit) < s.MinLength {
		return true
	}
	return s.endsWithAbbreviation(unit)
}

// endsWithAbbreviation checks whether the final word of unit is an
// abbreviation rather than the end of a sentence.
func (s *Segmenter) endsWithAbbreviation(unit string) bool {
	if !strings.HasSuffix(unit, ".") {
		return false
	}

	words := strings.Fields(unit)
	word := strings.ToLower(strings.TrimLeft(words[len(words)-1], `"'([`))
	bare := strings.TrimSuffix(word, ".")

	if s.abbreviations[bare] {
		return true
	}

	// Multi-part abbreviations like "Ph.D." or "U.S."
	if strings.Count(word, ".") > 1 && !strings.Contains(word, "..") {
		return true
	}

	// Initials like "J."
	if r, size := utf8.DecodeRuneInString(bare); size == len(bare) && unicode.IsLetter(r) {
		return true
	}

	return false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}
