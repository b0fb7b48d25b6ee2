// Package utils provides small path and text helpers shared by the CLI and
// the engines.
package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"
)

var frontmatterRE = regexp.MustCompile(`(?s)\A---\r?\n.*?\r?\n---\r?\n`)

// RemoveFrontmatter strips a leading YAML frontmatter block.
func RemoveFrontmatter(content []byte) []byte {
	_, body := SplitFrontmatter(content)
	return body
}

// SplitFrontmatter separates a leading YAML frontmatter block, delimiters
// included, from the rest of content. front is nil when there is none.
func SplitFrontmatter(content []byte) (front, body []byte) {
	if loc := frontmatterRE.FindIndex(content); loc != nil {
		return content[:loc[1]], content[loc[1]:]
	}
	return nil, content
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	return os.ExpandEnv(expanded)
}

var markdownExtensions = []string{
	".md", ".mdown", ".mkdn", ".mkd", ".markdown",
}

// IsMarkdownFile reports whether filename has a markdown extension. Names
// without an extension are treated as markdown.
func IsMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return true
	}
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}
