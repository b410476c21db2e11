package storage

import (
	"context"

	"github.com/poiesic/reviewsearch/core"
)

// Operation names carried by StoreError.
const (
	OpInsert         = "insert"
	OpInsertBatch    = "insert_batch"
	OpQuerySimilar   = "query_similar"
	OpQueryKeyword   = "query_keyword"
	OpCount          = "count"
	OpClear          = "clear"
	OpChunksByReview = "chunks_by_review"
	OpSample         = "sample"
	OpStats          = "stats"
)

// ChunkStore persists review chunks and answers similarity and keyword queries.
// Implementations must be thread-safe and support concurrent access.
// Every failure is a *StoreError.
type ChunkStore interface {
	// Insert stores one chunk and returns it with Id and CreatedAt assigned.
	Insert(ctx context.Context, chunk *core.ReviewChunk) (*core.ReviewChunk, error)

	// InsertBatch stores chunks atomically: either all of them persist or none do.
	// Returns the chunks with Id and CreatedAt assigned.
	InsertBatch(ctx context.Context, chunks []*core.ReviewChunk) ([]*core.ReviewChunk, error)

	// QuerySimilar returns chunks whose similarity (1 - cosine distance) to vector
	// is strictly greater than threshold, highest first, at most limit of them.
	QuerySimilar(ctx context.Context, vector []float32, threshold float64, limit int) ([]*core.Match, error)

	// QueryKeyword returns chunks matching text in the full-text index ordered by
	// the store's native relevance rank, at most limit of them.
	QueryKeyword(ctx context.Context, text string, limit int) ([]*core.Match, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes every chunk and index entry unconditionally.
	Clear(ctx context.Context) error

	// ChunksByReview returns a review's chunks ordered by chunk index.
	ChunksByReview(ctx context.Context, reviewID string) ([]*core.ReviewChunk, error)

	// Sample returns up to limit chunks in insertion order.
	Sample(ctx context.Context, limit int) ([]*core.ReviewChunk, error)

	// Stats summarizes the stored chunks.
	Stats(ctx context.Context) (*core.StoreStats, error)

	// Close releases resources held by the store.
	Close() error
}
