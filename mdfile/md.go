// Package mdfile implements splitting and reassembly of Markdown
// translation documents.
//
// A document is split into an optional frontmatter block and the body.
// Frontmatter is recognized only when the content, after any leading
// whitespace, starts with a "---" delimiter line and a matching closing
// "---" line exists later; otherwise the whole content is the body and
// frontmatter is absent.
//
// The split is a pure byte-level cut: Assemble(Split(x)) == x for every
// input, and the frontmatter block (including its delimiters and leading
// whitespace) round-trips untouched. Frontmatter is never translated.
package mdfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a Markdown document split into its untranslated
// frontmatter block (empty when absent) and translatable body.
type Document struct {
	// Frontmatter is the raw block from the start of the content through
	// the closing delimiter line, or "" when the document has none.
	Frontmatter string
	// Body is everything after the frontmatter.
	Body string
}

// ParseFile reads a Markdown file and splits it.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Split(string(data)), nil
}

// Split cuts content into frontmatter and body. The two parts always
// concatenate back to the exact input bytes.
func Split(content string) Document {
	offset := len(content) - len(strings.TrimLeft(content, " \t\r\n"))

	line, next := readLine(content, offset)
	if trimLine(line) != "---" {
		return Document{Body: content}
	}

	for pos := next; pos < len(content); {
		line, after := readLine(content, pos)
		if trimLine(line) == "---" {
			return Document{Frontmatter: content[:after], Body: content[after:]}
		}
		pos = after
	}

	// Opening delimiter without a closing one: treat everything as body.
	return Document{Body: content}
}

// trimLine strips the line terminator for delimiter comparison.
func trimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// readLine returns content[start:] up to and including the first newline,
// and the index just past it.
func readLine(content string, start int) (line string, next int) {
	if start >= len(content) {
		return "", len(content)
	}
	if i := strings.IndexByte(content[start:], '\n'); i >= 0 {
		return content[start : start+i+1], start + i + 1
	}
	return content[start:], len(content)
}

// Assemble concatenates frontmatter and body. When frontmatter is
// absent the body is returned unchanged.
func Assemble(frontmatter, body string) string {
	if frontmatter == "" {
		return body
	}
	return frontmatter + body
}

// Content returns the full document text.
func (d Document) Content() string {
	return Assemble(d.Frontmatter, d.Body)
}

// WriteFile writes the assembled document to path, creating parent
// directories as needed.
func (d Document) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(d.Content()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
