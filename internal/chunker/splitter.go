package chunker

import "github.com/lorekeep/novelrag/internal/domain"

// Splitter builds a fresh chunker per document so each upload can tune the
// chunk size and overlap.
type Splitter struct{}

// Split chunks text with the given parameters, falling back to the package
// defaults when they are out of range.
func (Splitter) Split(text string, chunkSize, overlap int) []domain.Chunk {
	return New(chunkSize, overlap).Split(text)
}
