package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrModelNotReady is returned when the embedding service reports that the
	// model is still loading. Callers may retry after a cooldown.
	ErrModelNotReady = errors.New("embedding model not ready")

	// ErrTimeout is returned when a single embedding call exceeds the request timeout.
	// It is transient.
	ErrTimeout = errors.New("embedding request timed out")

	// ErrEmptyResponse is returned when the service answers without any embedding.
	ErrEmptyResponse = errors.New("embedding service returned no embedding")

	// ErrEmbedderRequired is returned when a client is constructed without a transport.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrBatchFailed is returned when any text of a batch could not be embedded.
	ErrBatchFailed = errors.New("embedding batch failed")
)

// EmbeddingServiceError reports a non-success answer from the embedding service.
type EmbeddingServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *EmbeddingServiceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("embedding service error: %s", e.Message)
	}
	return fmt.Sprintf("embedding service error (status %d): %s", e.Status, e.Message)
}

// Unwrap exposes ErrModelNotReady for 503 answers so callers can test with errors.Is.
func (e *EmbeddingServiceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Status == http.StatusServiceUnavailable {
		return ErrModelNotReady
	}
	return nil
}

// MalformedResponseError reports an embedding whose length differs from the
// configured dimension.
type MalformedResponseError struct {
	Expected int
	Got      int
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed embedding response: expected %d dimensions, got %d", e.Expected, e.Got)
}
