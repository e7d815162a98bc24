// Package doctree implements the document model shared by all structured
// translation formats.
//
// A document is a tree of string-keyed maps whose leaves are either
// translatable strings or opaque values (numbers, booleans, null, arrays)
// that are passed through untouched. The tree is a closed set of node
// kinds so that flatten/unflatten logic can match exhaustively:
//
//	greeting: Hello          → string leaf  "greeting"
//	nav:
//	  home: Home             → string leaf  "nav.home"
//	  order: 3               → opaque leaf  (not translated)
//
// Map nodes preserve key insertion order; flattening emits entries in
// depth-first document order.
package doctree

import "strings"

// Kind identifies the variant of a Node.
type Kind int

const (
	// KindMap is a string-keyed map with ordered keys.
	KindMap Kind = iota
	// KindString is a translatable string leaf.
	KindString
	// KindOpaque is a non-translatable leaf (number, bool, null, array),
	// carried verbatim from parse to serialize.
	KindOpaque
)

// Node is one node of a hierarchical document.
type Node struct {
	Kind Kind

	// Str holds the value for KindString nodes.
	Str string

	// Opaque holds the codec-specific raw value for KindOpaque nodes
	// (e.g. json.RawMessage or *yaml.Node). Codecs own its concrete type.
	Opaque any

	// keys preserves map key order for KindMap nodes.
	keys     []string
	children map[string]*Node
}

// NewMap returns an empty map node.
func NewMap() *Node {
	return &Node{Kind: KindMap, children: make(map[string]*Node)}
}

// NewString returns a string leaf.
func NewString(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// NewOpaque returns an opaque leaf wrapping a codec-specific raw value.
func NewOpaque(raw any) *Node {
	return &Node{Kind: KindOpaque, Opaque: raw}
}

// Set inserts or replaces the child under key. Insertion order of new keys
// is preserved for traversal and serialization.
func (n *Node) Set(key string, child *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, exists := n.children[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.children[key] = child
}

// Get returns the child under key, or nil.
func (n *Node) Get(key string) *Node {
	return n.children[key]
}

// Keys returns the map keys in insertion order. The returned slice is
// shared; callers must not modify it.
func (n *Node) Keys() []string {
	return n.keys
}

// Len returns the number of children of a map node.
func (n *Node) Len() int {
	return len(n.keys)
}

// FlatEntry is a single translatable unit: a leaf string value addressed
// by its dot-joined key path from the document root.
type FlatEntry struct {
	// Key is the dotted path (e.g. "nav.home").
	Key string
	// Value is the leaf string.
	Value string
}

// Flatten walks the tree depth-first in key order and returns one entry
// per string leaf. Opaque leaves are skipped: only strings participate in
// translation. Keys are unique within one flattening and the entry order
// reflects document traversal order.
func Flatten(root *Node) []FlatEntry {
	var entries []FlatEntry
	flattenInto(root, "", &entries)
	return entries
}

func flattenInto(n *Node, prefix string, out *[]FlatEntry) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindString:
		*out = append(*out, FlatEntry{Key: prefix, Value: n.Str})
	case KindMap:
		for _, k := range n.keys {
			child := n.children[k]
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenInto(child, key, out)
		}
	case KindOpaque:
		// Not translatable.
	}
}

// KeySet returns the set of flattened string-leaf keys of root.
// A nil root yields an empty set.
func KeySet(root *Node) map[string]bool {
	set := make(map[string]bool)
	for _, e := range Flatten(root) {
		set[e.Key] = true
	}
	return set
}

// Unflatten rebuilds a hierarchical document from dotted-path entries.
//
// When a path segment collides with an existing non-map value, the value
// is overwritten with a fresh map (last write wins at that segment). This
// is a known edge case of dotted-path reconstruction, not a merge
// guarantee.
func Unflatten(entries []FlatEntry) *Node {
	root := NewMap()
	for _, e := range entries {
		segments := strings.Split(e.Key, ".")
		node := root
		for _, seg := range segments[:len(segments)-1] {
			child := node.Get(seg)
			if child == nil || child.Kind != KindMap {
				child = NewMap()
				node.Set(seg, child)
			}
			node = child
		}
		node.Set(segments[len(segments)-1], NewString(e.Value))
	}
	return root
}
