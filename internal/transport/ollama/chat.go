package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/lorekeep/novelrag/internal/domain"
)

// chatScanBufferSize bounds a single NDJSON line from the chat stream.
const chatScanBufferSize = 1 << 20

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []any         `json:"tools"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Stream implements domain.Generator against the Ollama chat endpoint.
// The request itself fails synchronously; once the NDJSON stream is open,
// deltas arrive on the returned channel until the upstream reports done or
// the context is cancelled. Malformed stream lines are skipped.
func (c *Client) Stream(ctx context.Context, prompt string) (<-chan domain.GenerationDelta, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    c.chatModel,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
		Tools:    []any{},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post chat: %v: %w", err, domain.ErrGenerationFailed)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("chat returned status %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(body), domain.ErrGenerationFailed)
	}

	deltas := make(chan domain.GenerationDelta)
	go c.consumeChat(ctx, resp.Body, deltas)
	return deltas, nil
}

func (c *Client) consumeChat(ctx context.Context, body io.ReadCloser, deltas chan<- domain.GenerationDelta) {
	defer close(deltas)
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), chatScanBufferSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Debug("skipping malformed chat stream line", zap.Error(err))
			continue
		}

		delta := domain.GenerationDelta{Content: chunk.Message.Content, Done: chunk.Done}
		select {
		case deltas <- delta:
		case <-ctx.Done():
			return
		}
		if chunk.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		streamErr := fmt.Errorf("chat stream read: %v: %w", err, domain.ErrGenerationFailed)
		select {
		case deltas <- domain.GenerationDelta{Err: streamErr}:
		case <-ctx.Done():
		}
	}
}
