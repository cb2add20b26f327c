package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxAttempts is how many times an embedding request is tried
	// before the failure is surfaced.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the pause between embedding attempts.
	DefaultRetryDelay = time.Second

	defaultTimeout = 120 * time.Second
)

// Client talks to the native Ollama HTTP API for embeddings, chat
// generation and liveness checks.
type Client struct {
	baseURL     string
	embedModel  string
	chatModel   string
	maxAttempts int
	retryDelay  time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

// Config holds the Ollama connection settings.
type Config struct {
	BaseURL     string
	EmbedModel  string
	ChatModel   string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// New creates an Ollama API client.
func New(cfg *Config) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// HealthCheck verifies Ollama availability via the tags endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("build tags request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama tags request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama tags returned status %d", resp.StatusCode)
	}
	return nil
}
