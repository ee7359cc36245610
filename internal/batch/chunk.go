// Package batch splits ordered sequences into bounded-size chunks for
// transport sizing. Chunks have no identity of their own.
package batch

// Chunk splits items into slices of at most size elements, preserving input
// order. The last chunk may be shorter. size must be at least 1.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		panic("batch: chunk size must be at least 1")
	}

	if len(items) == 0 {
		return [][]T{}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
