// Package jsonfile implements reading and writing of JSON translation
// documents on top of the doctree model.
//
// Parsing preserves object key order (encoding/json maps do not), string
// leaves become translatable entries; every other value (number,
// boolean, null, array) is kept as raw JSON and passed through verbatim
// on write.
//
// Serialization re-indents with the style inferred from the source file:
// the leading whitespace of the first indented line (tab files keep tabs),
// falling back to two spaces. Output always ends with a trailing newline.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openlocale/langsync/doctree"
)

// DefaultIndent is used when the source has no indented lines.
const DefaultIndent = "  "

// File represents a parsed JSON translation document.
type File struct {
	// Root is the document tree. Nil for an empty document.
	Root *doctree.Node
	// Indent is the detected indentation unit used on write.
	Indent string
}

// ParseFile reads and parses a JSON translation document.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses JSON data into a File.
func Parse(data []byte) (*File, error) {
	root, err := parseObject(json.RawMessage(bytes.TrimSpace(data)))
	if err != nil {
		return nil, err
	}
	return &File{Root: root, Indent: DetectIndent(data)}, nil
}

// parseObject decodes a JSON object into a map node, preserving key order
// via the token stream.
func parseObject(raw json.RawMessage) (*doctree.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	node := doctree.NewMap()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parsing value of %q: %w", key, err)
		}

		child, err := parseValue(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		node.Set(key, child)
	}

	return node, nil
}

// parseValue maps a raw JSON value onto a doctree node: objects recurse,
// strings become translatable leaves, everything else stays opaque.
func parseValue(raw json.RawMessage) (*doctree.Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}
	switch trimmed[0] {
	case '{':
		return parseObject(trimmed)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("parsing string: %w", err)
		}
		return doctree.NewString(s), nil
	default:
		return doctree.NewOpaque(json.RawMessage(append([]byte(nil), trimmed...))), nil
	}
}

// DetectIndent returns the indentation unit of the source: the leading
// whitespace of the first indented line. A tab-indented source yields a
// single tab; otherwise the run of leading spaces, defaulting to two.
func DetectIndent(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if len(line) == 0 || (line[0] != ' ' && line[0] != '\t') {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == '\t' {
			return "\t"
		}
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		return strings.Repeat(" ", n)
	}
	return DefaultIndent
}

// Marshal serializes the document with the detected indentation,
// preserving key order, and appends a trailing newline.
func (f *File) Marshal() ([]byte, error) {
	indent := f.Indent
	if indent == "" {
		indent = DefaultIndent
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, f.Root, "", indent); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *doctree.Node, prefix, indent string) error {
	if n == nil {
		buf.WriteString("{}")
		return nil
	}
	switch n.Kind {
	case doctree.KindString:
		buf.Write(jsonString(n.Str))
		return nil
	case doctree.KindOpaque:
		raw, ok := n.Opaque.(json.RawMessage)
		if !ok {
			return fmt.Errorf("opaque value is %T, want json.RawMessage", n.Opaque)
		}
		// Passthrough values keep their source bytes verbatim.
		buf.Write(raw)
		return nil
	case doctree.KindMap:
		keys := n.Keys()
		if len(keys) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		inner := prefix + indent
		for i, k := range keys {
			buf.WriteString(inner)
			buf.Write(jsonString(k))
			buf.WriteString(": ")
			if err := writeNode(buf, n.Get(k), inner, indent); err != nil {
				return err
			}
			if i < len(keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(prefix)
		buf.WriteByte('}')
		return nil
	}
	return fmt.Errorf("unknown node kind %v", n.Kind)
}

// jsonString returns the JSON encoding of s without HTML escaping.
func jsonString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encode cannot fail for a plain string.
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// WriteFile serializes the document and writes it to path, creating
// parent directories as needed.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
