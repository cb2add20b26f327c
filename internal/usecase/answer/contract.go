package answer

import (
	"context"

	"github.com/lorekeep/novelrag/internal/domain"
)

// Retriever finds the context chunks and references for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question, documentID string) ([]domain.ContextChunk, []domain.Reference, error)
}

// Generator streams incremental text deltas for a prompt.
type Generator interface {
	Stream(ctx context.Context, prompt string) (<-chan domain.GenerationDelta, error)
}
