package retrieve

import (
	"context"

	"github.com/lorekeep/novelrag/internal/domain"
)

type mockChunkReader struct {
	queryNearestFn func(ctx context.Context, vector []float32, k int, documentID string) ([]domain.Match, error)
}

func (m *mockChunkReader) QueryNearest(
	ctx context.Context, vector []float32, k int, documentID string,
) ([]domain.Match, error) {
	return m.queryNearestFn(ctx, vector, k, documentID)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return m.embedFn(ctx, text)
}

func staticEmbedder(vec []float32) *mockEmbedder {
	return &mockEmbedder{
		embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
			return domain.EmbeddingResult{Embedding: vec}, nil
		},
	}
}

func distancePtr(d float64) *float64 { return &d }

func matchWith(text string, index int, distance *float64) domain.Match {
	return domain.Match{
		Chunk: domain.Chunk{
			Text:       text,
			Page:       1,
			StartLine:  1,
			EndLine:    10,
			Index:      index,
			DocumentID: "doc-1",
			Filename:   "moby.txt",
		},
		Distance: distance,
	}
}
