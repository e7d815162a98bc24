// Package batch partitions translation units into request-sized batches.
package batch

// Split packs strings into batches, greedy left to right in a single
// pass. A new batch starts when adding the next string would exceed
// maxItems or push the accumulated character count past maxChars.
//
// A string longer than maxChars on its own is emitted as a singleton
// batch (flushing whatever was accumulating first) and contributes
// nothing to later accumulation. Concatenating the batches in order
// reproduces the input exactly.
func Split(items []string, maxItems, maxChars int) [][]string {
	var (
		batches [][]string
		current []string
		chars   int
	)

	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
	}

	for _, item := range items {
		if len(item) > maxChars {
			flush()
			batches = append(batches, []string{item})
			continue
		}
		if len(current) >= maxItems || chars+len(item) > maxChars {
			flush()
		}
		current = append(current, item)
		chars += len(item)
	}
	flush()

	return batches
}
