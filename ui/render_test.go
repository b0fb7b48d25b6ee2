package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/muesli/reflow/ansi"
)

func TestRenderArticleOffsets(t *testing.T) {
	m := tts.Matrix{
		{"One two three four five six seven eight nine ten."},
		{"Short."},
		{"Another short one.", "And a second sentence."},
	}

	r := renderArticle("Title", m, tts.Position{}, false, 24)

	lines := strings.Split(r.content, "\n")
	if r.lines != len(lines) {
		t.Errorf("lines = %d, content has %d", r.lines, len(lines))
	}
	if len(r.offsets) != len(m) {
		t.Fatalf("Expected an offset per paragraph, got %v", r.offsets)
	}
	if r.offsets[0] != 2 {
		t.Errorf("First paragraph should follow the title, got %d", r.offsets[0])
	}

	for p, off := range r.offsets {
		first := strings.Fields(m[p][0])[0]
		if !strings.Contains(lines[off], first) {
			t.Errorf("Paragraph %d offset %d points at %q", p, off, lines[off])
		}
		if off > 0 && strings.TrimSpace(lines[off-1]) != "" {
			t.Errorf("Paragraph %d should be preceded by a blank line", p)
		}
	}

	for i, l := range lines {
		if w := ansi.PrintableRuneWidth(l); w > 24 && i != 0 {
			t.Errorf("Line %d is %d wide: %q", i, w, l)
		}
	}
}

func TestRenderArticleGutter(t *testing.T) {
	m := tts.Matrix{{"First."}, {"Second one.", "Third one."}}

	r := renderArticle("", m, tts.Position{Paragraph: 1, Sentence: 1}, true, 40)
	lines := strings.Split(r.content, "\n")

	if r.offsets[0] != 0 || r.offsets[1] != 2 {
		t.Fatalf("Unexpected offsets %v", r.offsets)
	}
	if strings.Contains(lines[0], "▌") {
		t.Error("Only the current paragraph gets a gutter mark")
	}
	if !strings.Contains(lines[2], "▌") {
		t.Errorf("Current paragraph should be marked, got %q", lines[2])
	}

	idle := renderArticle("", m, tts.Position{Paragraph: 1}, false, 40)
	if strings.Contains(idle.content, "▌") {
		t.Error("Nothing is marked while idle")
	}
}

func TestParagraphAt(t *testing.T) {
	r := rendered{offsets: []int{2, 5, 9}}

	tests := []struct {
		line int
		want int
	}{
		{0, 0},
		{2, 0},
		{4, 0},
		{5, 1},
		{8, 1},
		{9, 2},
		{40, 2},
	}

	for _, tt := range tests {
		if got := r.paragraphAt(tt.line); got != tt.want {
			t.Errorf("paragraphAt(%d) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestWordCount(t *testing.T) {
	m := tts.Matrix{{"One two.", "Three."}, {"Four five six."}}
	if got := wordCount(m); got != 6 {
		t.Errorf("wordCount() = %d, want 6", got)
	}
}

func TestStepRate(t *testing.T) {
	tests := []struct {
		current float64
		dir     int
		want    float64
	}{
		{1.0, 1, 1.25},
		{1.0, -1, 0.75},
		{1.1, 1, 1.25},
		{1.1, -1, 1.0},
		{0.5, -1, 0.5},
		{3.0, 1, 3.0},
		{2.5, 1, 3.0},
	}

	for _, tt := range tests {
		if got := stepRate(tt.current, tt.dir); got != tt.want {
			t.Errorf("stepRate(%v, %d) = %v, want %v", tt.current, tt.dir, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{1500 * time.Millisecond, "0:02"},
		{75 * time.Second, "1:15"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	if got := formatRate(1.25); got != "1.25×" {
		t.Errorf("formatRate(1.25) = %q", got)
	}
	if got := formatRate(1); got != "1×" {
		t.Errorf("formatRate(1) = %q", got)
	}
}
