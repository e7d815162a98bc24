// Package yamlfile implements reading and writing of YAML translation
// documents on top of the doctree model.
//
// The expected format is a nested YAML map with string leaf values:
//
//	greeting: Hello
//	nav:
//	  home: Home
//	  about: About
//
// String leaves are translatable; non-string leaves (numbers, booleans,
// nulls, sequences) keep their original yaml nodes and are passed
// through unchanged on write. Output uses 2-space indentation.
package yamlfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/openlocale/langsync/doctree"
)

// File represents a parsed YAML translation document.
type File struct {
	// Root is the document tree. Nil for an empty document.
	Root *doctree.Node
}

// ParseFile reads and parses a YAML translation document.
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

// Parse parses YAML data into a File.
func Parse(data []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return &File{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a YAML map at document root, got %v", root.Kind)
	}

	node, err := fromYAML(root)
	if err != nil {
		return nil, err
	}
	return &File{Root: node}, nil
}

// fromYAML converts a yaml mapping node into a doctree map. String
// scalars become translatable leaves; everything else stays opaque.
func fromYAML(m *yaml.Node) (*doctree.Node, error) {
	node := doctree.NewMap()
	for i := 0; i+1 < len(m.Content); i += 2 {
		keyNode := m.Content[i]
		valNode := m.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("non-scalar map key at line %d", keyNode.Line)
		}

		var child *doctree.Node
		switch {
		case valNode.Kind == yaml.MappingNode:
			var err error
			if child, err = fromYAML(valNode); err != nil {
				return nil, err
			}
		case valNode.Kind == yaml.ScalarNode && valNode.Tag == "!!str":
			child = doctree.NewString(valNode.Value)
		default:
			child = doctree.NewOpaque(valNode)
		}
		node.Set(keyNode.Value, child)
	}
	return node, nil
}

// toYAML converts a doctree node back into a yaml node.
func toYAML(n *doctree.Node) (*yaml.Node, error) {
	if n == nil {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	switch n.Kind {
	case doctree.KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Str}, nil
	case doctree.KindOpaque:
		raw, ok := n.Opaque.(*yaml.Node)
		if !ok {
			return nil, fmt.Errorf("opaque value is %T, want *yaml.Node", n.Opaque)
		}
		return raw, nil
	case doctree.KindMap:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.Keys() {
			child, err := toYAML(n.Get(k))
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				child)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown node kind %v", n.Kind)
}

// Marshal serializes the document with 2-space indentation.
func (f *File) Marshal() ([]byte, error) {
	root, err := toYAML(f.Root)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile serializes the document and writes it to path, creating
// parent directories as needed.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
