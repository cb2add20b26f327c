package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies upstream service availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries an embedding vector through the provider chain.
type EmbeddingResult struct {
	Embedding []float32
}

// GenerationDelta is one incremental step of a streamed generation.
// Err is set when the upstream stream breaks after it was established.
type GenerationDelta struct {
	Content string
	Done    bool
	Err     error
}

// Generator streams incremental answer text for a prompt. The returned
// channel is closed when the upstream signals completion or the context is
// cancelled; cancellation closes the upstream connection promptly.
type Generator interface {
	Stream(ctx context.Context, prompt string) (<-chan GenerationDelta, error)
}
