package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
	"github.com/lorekeep/novelrag/internal/metrics"
)

const providerName = "ollama"

// maxErrorBodyBytes caps how much of an upstream error body is carried in
// the returned error.
const maxErrorBodyBytes = 2048

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements domain.Embedder. The request is retried up to the
// configured attempt count with a pause in between; only the last failure
// is surfaced. Connection-level failures map to ErrEmbeddingUnavailable,
// upstream rejections to an EmbeddingError carrying status and body.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	payload, err := json.Marshal(embeddingRequest{Model: c.embedModel, Prompt: text})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal embedding request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.EmbeddingRetriesTotal.WithLabelValues(providerName, c.embedModel).Inc()
			select {
			case <-ctx.Done():
				return domain.EmbeddingResult{}, fmt.Errorf("embedding retry wait: %w", ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		result, err := c.embedOnce(ctx, payload)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("embedding attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.embedModel, "error").Inc()
	return domain.EmbeddingResult{}, lastErr
}

func (c *Client) embedOnce(ctx context.Context, payload []byte) (domain.EmbeddingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("post embeddings: %v: %w", err, domain.ErrEmbeddingUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return domain.EmbeddingResult{}, domain.NewEmbeddingError(resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("decode embedding response: %v: %w", err, domain.ErrEmbeddingFailed)
	}
	if len(parsed.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingFailed)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, c.embedModel, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, c.embedModel).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: parsed.Embedding}, nil
}
