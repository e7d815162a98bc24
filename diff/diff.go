// Package diff computes the set of entries still needing translation and
// merges translation results back into a document.
//
// Both operations are keyed on dotted flat-entry paths. The diff is a
// pure key-presence check against the previously produced target file:
// there is no stored source snapshot, so a changed source VALUE under a
// key that already exists in the target is never retranslated. Keys
// already present in the target (including manual edits) are left alone.
package diff

import "github.com/openlocale/langsync/doctree"

// Diff returns the source entries whose keys are absent from the
// existing target document, in source order. A nil existing target means
// everything needs translation.
func Diff(source []doctree.FlatEntry, existing *doctree.Node) []doctree.FlatEntry {
	if existing == nil {
		return source
	}

	have := doctree.KeySet(existing)
	var missing []doctree.FlatEntry
	for _, e := range source {
		if !have[e.Key] {
			missing = append(missing, e)
		}
	}
	return missing
}

// Merge builds the output document for one (source, target) pair. The
// result mirrors the source tree: key order always follows source
// traversal order regardless of the target file's prior order, and
// opaque leaves are copied from the source untouched.
//
// For each translatable key the value precedence is: freshly translated
// value, then the existing target's value (preserving manual edits),
// then the source value as untranslated passthrough.
func Merge(source *doctree.Node, translated map[string]string, existing *doctree.Node) *doctree.Node {
	existingValues := make(map[string]string)
	if existing != nil {
		for _, e := range doctree.Flatten(existing) {
			existingValues[e.Key] = e.Value
		}
	}
	return mergeNode(source, "", translated, existingValues)
}

func mergeNode(n *doctree.Node, prefix string, translated, existing map[string]string) *doctree.Node {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case doctree.KindString:
		if v, ok := translated[prefix]; ok {
			return doctree.NewString(v)
		}
		if v, ok := existing[prefix]; ok {
			return doctree.NewString(v)
		}
		return doctree.NewString(n.Str)
	case doctree.KindOpaque:
		return doctree.NewOpaque(n.Opaque)
	case doctree.KindMap:
		out := doctree.NewMap()
		for _, k := range n.Keys() {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			out.Set(k, mergeNode(n.Get(k), key, translated, existing))
		}
		return out
	}
	return nil
}
