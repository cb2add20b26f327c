package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingUnavailable signals that the embedding service host is unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrEmbeddingFailed signals an embedding request rejected by the service.
	ErrEmbeddingFailed = errors.New("embedding request failed")
	// ErrGenerationFailed signals a generation service failure.
	ErrGenerationFailed = errors.New("generation request failed")
	// ErrStoreOperation signals a vector store insert/query/delete error.
	ErrStoreOperation = errors.New("vector store operation failed")
	// ErrUnsupportedInput signals an unrecognized file type or malformed upload.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrJobNotFound signals that no ingestion job exists for a document.
	ErrJobNotFound = errors.New("ingestion job not found")
)

// EmbeddingError wraps ErrEmbeddingFailed with the upstream status and
// response body of the final failed attempt.
type EmbeddingError struct {
	StatusCode int
	Body       string
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrEmbeddingFailed.Error(), e.StatusCode, e.Body)
}

func (e *EmbeddingError) Unwrap() error { return ErrEmbeddingFailed }

// NewEmbeddingError creates an embedding failure carrying upstream detail.
func NewEmbeddingError(statusCode int, body string) error {
	return &EmbeddingError{StatusCode: statusCode, Body: body}
}
