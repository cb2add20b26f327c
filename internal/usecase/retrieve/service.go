package retrieve

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
)

// DefaultTopK is the number of nearest chunks fetched per question.
const DefaultTopK = 5

// Service retrieves the chunks most similar to a question.
type Service struct {
	store  ChunkReader
	embed  Embedder
	topK   int
	logger *zap.Logger
}

// New creates a retrieval service.
func New(store ChunkReader, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embed: embed, topK: DefaultTopK, logger: logger}
}

// WithTopK overrides the number of nearest chunks fetched per question.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Retrieve embeds the question and returns the nearest chunks in the store's
// native ranking, plus a reference entry for every match. When documentID is
// set the search is restricted to that document's chunks.
func (s *Service) Retrieve(
	ctx context.Context, question, documentID string,
) ([]domain.ContextChunk, []domain.Reference, error) {
	embRes, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, nil, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.store.QueryNearest(ctx, embRes.Embedding, s.topK, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest: %w", err)
	}

	chunks := make([]domain.ContextChunk, 0, len(matches))
	refs := make([]domain.Reference, 0, len(matches))
	for _, m := range matches {
		sim := similarityFromDistance(m.Distance)
		chunks = append(chunks, domain.ContextChunk{Chunk: m.Chunk, Similarity: sim})
		refs = append(refs, domain.Reference{
			Page:            m.Chunk.Page,
			StartLine:       m.Chunk.StartLine,
			EndLine:         m.Chunk.EndLine,
			Content:         m.Chunk.Text,
			SimilarityScore: sim,
		})
	}

	s.logger.Debug("retrieved chunks",
		zap.Int("count", len(chunks)),
		zap.String("document_id", documentID))

	return chunks, refs, nil
}

// similarityFromDistance converts the store's native distance into a
// similarity in [0,1], rounded to three decimals. A missing distance maps
// to zero rather than an error.
func similarityFromDistance(d *float64) float64 {
	if d == nil {
		return 0
	}
	sim := 1 - *d
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return math.Round(sim*1000) / 1000
}
