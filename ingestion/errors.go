package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a chunk store is not provided.
	ErrStoreRequired = errors.New("chunk store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrChunkerRequired is returned when a nil chunker is configured.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than chunks.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrInvalidRecord is returned for a review source line that cannot be parsed.
	ErrInvalidRecord = errors.New("invalid review record")
)
