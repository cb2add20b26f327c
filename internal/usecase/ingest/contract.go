package ingest

import (
	"context"

	"github.com/lorekeep/novelrag/internal/domain"
)

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	InsertBatch(ctx context.Context, chunks []domain.EmbeddedChunk) error
}

// Embedder vectorizes chunk text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Splitter cuts document text into chunks with page and line spans.
// Uploads tune chunkSize and overlap per document.
type Splitter interface {
	Split(text string, chunkSize, overlap int) []domain.Chunk
}
