// Package voice picks a synthesizer voice for a language.
package voice

import (
	"strings"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/sahilm/fuzzy"
)

// PremiumMarkers are case-insensitive name fragments that signal an
// enhanced or vendor-curated voice.
var PremiumMarkers = []string{"google", "enhanced", "premium"}

// Select returns the best voice in catalog for lang.
//
// A preferred voice (matched by name or ID) wins if it speaks lang. Otherwise
// the first premium voice for lang is returned, then the first voice for
// lang. The boolean is false when nothing matches; callers should then let
// the synthesizer use its default voice.
func Select(catalog []tts.Voice, lang, preferred string) (tts.Voice, bool) {
	if preferred != "" {
		for _, v := range catalog {
			if (strings.EqualFold(v.Name, preferred) || strings.EqualFold(v.ID, preferred)) && Speaks(v, lang) {
				return v, true
			}
		}
	}

	matches := ForLanguage(catalog, lang)
	if len(matches) == 0 {
		return tts.Voice{}, false
	}

	for _, v := range matches {
		if IsPremium(v) {
			return v, true
		}
	}

	return matches[0], true
}

// ForLanguage returns the voices in catalog that speak lang, in catalog
// order.
func ForLanguage(catalog []tts.Voice, lang string) []tts.Voice {
	var matches []tts.Voice
	for _, v := range catalog {
		if Speaks(v, lang) {
			matches = append(matches, v)
		}
	}
	return matches
}

// Speaks reports whether v's language tag starts with lang. Comparison is
// case-insensitive and treats "_" like "-", so "en" matches "en_GB".
func Speaks(v tts.Voice, lang string) bool {
	return strings.HasPrefix(normalizeTag(v.Language), normalizeTag(lang))
}

// IsPremium reports whether v's name carries one of the PremiumMarkers.
func IsPremium(v tts.Voice) bool {
	name := strings.ToLower(v.Name)
	for _, marker := range PremiumMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Filter fuzzy-matches query against voice names and IDs, best match first.
// An empty query returns the catalog unchanged.
func Filter(catalog []tts.Voice, query string) []tts.Voice {
	if query == "" {
		return catalog
	}

	matches := fuzzy.FindFrom(query, voiceSource(catalog))
	voices := make([]tts.Voice, 0, len(matches))
	for _, m := range matches {
		voices = append(voices, catalog[m.Index])
	}
	return voices
}

// voiceSource adapts a catalog to fuzzy.Source.
type voiceSource []tts.Voice

func (s voiceSource) String(i int) string {
	return s[i].Name + " " + s[i].ID + " " + s[i].Language
}

func (s voiceSource) Len() int {
	return len(s)
}

func normalizeTag(tag string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tag)), "_", "-")
}
