// Package article turns a markdown or plain text document into the ordered
// paragraph list the player reads aloud.
package article

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/dgnsrekt/readaloud/utils"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/language"
)

// Article is a document ready to be read.
type Article struct {
	Title      string
	Language   string // BCP 47 tag
	Paragraphs []string
}

// Load reads filename ("-" for stdin) and parses it. fallbackLang is used
// when the document does not declare a language.
func Load(filename, fallbackLang string) (Article, error) {
	if filename == "-" {
		return Read(os.Stdin, "", fallbackLang)
	}

	f, err := os.Open(utils.ExpandPath(filename))
	if err != nil {
		return Article{}, fmt.Errorf("unable to read article: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return Read(f, filename, fallbackLang)
}

// Read parses the document in r. name is the file name or URL it came
// from; it decides between markdown and plain text and provides the title
// when the document has none. An empty name means markdown.
func Read(r io.Reader, name, fallbackLang string) (Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Article{}, fmt.Errorf("unable to read article: %w", err)
	}

	markdown := name == "" || utils.IsMarkdownFile(name)
	a := Parse(data, markdown, fallbackLang)
	if a.Title == "" && name != "" {
		base := path.Base(name)
		a.Title = strings.TrimSuffix(base, path.Ext(base))
	}
	return a, nil
}

// Parse builds an article from source. Plain text paragraphs are separated
// by blank lines.
func Parse(source []byte, markdown bool, fallbackLang string) Article {
	front, body := utils.SplitFrontmatter(source)

	a := Article{Language: detectLanguage(front, fallbackLang)}
	if markdown {
		a.Title, a.Paragraphs = parseMarkdown(body)
	} else {
		a.Paragraphs = parseText(body)
	}
	return a
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

func parseText(source []byte) []string {
	normalized := strings.ReplaceAll(string(source), "\r\n", "\n")

	var paragraphs []string
	for _, block := range blankLines.Split(normalized, -1) {
		if p := strings.Join(strings.Fields(block), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

func parseMarkdown(source []byte) (title string, paragraphs []string) {
	reader := text.NewReader(source)
	doc := goldmark.New().Parser().Parse(reader)

	add := func(s string) {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Heading:
			heading := inlineText(n, source)
			if title == "" && n.Level == 1 {
				title = strings.TrimSpace(heading)
			}
			add(terminate(heading))
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			add(inlineText(n, source))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return title, paragraphs
}

// inlineText collects the readable text under n. Link targets, images and
// raw HTML are dropped.
func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Text:
				buf.Write(c.Segment.Value(source))
				if c.SoftLineBreak() || c.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(c.Value)
			case *ast.AutoLink:
				buf.Write(c.Label(source))
			case *ast.Image, *ast.RawHTML:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}

// terminate ends a heading with a period so it is spoken as a sentence of
// its own.
func terminate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s[len(s)-1:], ".!?:") {
		return s
	}
	return s + "."
}

var langField = regexp.MustCompile(`(?m)^(?:lang|language):\s*["']?([A-Za-z]{2,3}(?:[-_][A-Za-z0-9]+)*)["']?\s*$`)

// detectLanguage reads lang/language from frontmatter, falling back to
// fallback. Invalid tags are ignored.
func detectLanguage(front []byte, fallback string) string {
	if m := langField.FindSubmatch(front); m != nil {
		if tag, err := language.Parse(strings.ReplaceAll(string(m[1]), "_", "-")); err == nil {
			return tag.String()
		}
	}
	return fallback
}
