package retrieve

import (
	"context"

	"github.com/lorekeep/novelrag/internal/domain"
)

// ChunkReader reads nearest-neighbor matches from the chunk store.
type ChunkReader interface {
	QueryNearest(ctx context.Context, vector []float32, k int, documentID string) ([]domain.Match, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
