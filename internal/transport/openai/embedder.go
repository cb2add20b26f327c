package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
	"github.com/lorekeep/novelrag/internal/metrics"
)

// DefaultMaxAttempts and DefaultRetryDelay match the native Ollama embedder
// so both providers fail over identically.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Embedder is an embedding provider using the OpenAI-compatible API. It is
// the alternative to the native Ollama embedder for hosted backends.
type Embedder struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	dimensions  int
	provider    string
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	Provider    string
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	return &Embedder{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       openai.EmbeddingModel(cfg.Model),
		dimensions:  cfg.Dimensions,
		provider:    cfg.Provider,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// Embed implements domain.Embedder. The request is retried up to the
// configured attempt count with a pause in between; only the last failure
// is surfaced.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.EmbeddingRetriesTotal.WithLabelValues(e.provider, string(e.model)).Inc()
			select {
			case <-ctx.Done():
				return domain.EmbeddingResult{}, fmt.Errorf("embedding retry wait: %w", ctx.Err())
			case <-time.After(e.retryDelay):
			}
		}

		result, err := e.embedOnce(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		e.logger.Warn("embedding attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Error(err))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	return domain.EmbeddingResult{}, lastErr
}

func (e *Embedder) embedOnce(ctx context.Context, req openai.EmbeddingRequest) (domain.EmbeddingResult, error) {
	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingFailed)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: resp.Data[0].Embedding}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError maps API failures onto the shared embedding error taxonomy.
// Responses the upstream actually produced become EmbeddingError; everything
// else counts as the provider being unavailable.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewEmbeddingError(reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewEmbeddingError(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingUnavailable)
}
