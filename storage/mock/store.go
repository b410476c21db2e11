// Package mock provides a test double for storage.ChunkStore.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
)

// MockStore is a test double for storage.ChunkStore.
// Each method calls its function field if set and otherwise returns an empty
// result. Calls are counted per method.
type MockStore struct {
	InsertFunc         func(ctx context.Context, chunk *core.ReviewChunk) (*core.ReviewChunk, error)
	InsertBatchFunc    func(ctx context.Context, chunks []*core.ReviewChunk) ([]*core.ReviewChunk, error)
	QuerySimilarFunc   func(ctx context.Context, vector []float32, threshold float64, limit int) ([]*core.Match, error)
	QueryKeywordFunc   func(ctx context.Context, text string, limit int) ([]*core.Match, error)
	CountFunc          func(ctx context.Context) (int, error)
	ClearFunc          func(ctx context.Context) error
	ChunksByReviewFunc func(ctx context.Context, reviewID string) ([]*core.ReviewChunk, error)
	SampleFunc         func(ctx context.Context, limit int) ([]*core.ReviewChunk, error)
	StatsFunc          func(ctx context.Context) (*core.StoreStats, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ storage.ChunkStore = (*MockStore)(nil)

// NewMockStore creates a mock store with empty default behavior.
func NewMockStore() *MockStore {
	return &MockStore{calls: make(map[string]int)}
}

// Calls returns how many times the operation was invoked. Use the storage.Op* names.
func (m *MockStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockStore) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func (m *MockStore) Insert(ctx context.Context, chunk *core.ReviewChunk) (*core.ReviewChunk, error) {
	m.record(storage.OpInsert)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, chunk)
	}
	return chunk, nil
}

func (m *MockStore) InsertBatch(ctx context.Context, chunks []*core.ReviewChunk) ([]*core.ReviewChunk, error) {
	m.record(storage.OpInsertBatch)
	if m.InsertBatchFunc != nil {
		return m.InsertBatchFunc(ctx, chunks)
	}
	return chunks, nil
}

func (m *MockStore) QuerySimilar(ctx context.Context, vector []float32, threshold float64, limit int) ([]*core.Match, error) {
	m.record(storage.OpQuerySimilar)
	if m.QuerySimilarFunc != nil {
		return m.QuerySimilarFunc(ctx, vector, threshold, limit)
	}
	return []*core.Match{}, nil
}

func (m *MockStore) QueryKeyword(ctx context.Context, text string, limit int) ([]*core.Match, error) {
	m.record(storage.OpQueryKeyword)
	if m.QueryKeywordFunc != nil {
		return m.QueryKeywordFunc(ctx, text, limit)
	}
	return []*core.Match{}, nil
}

func (m *MockStore) Count(ctx context.Context) (int, error) {
	m.record(storage.OpCount)
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockStore) Clear(ctx context.Context) error {
	m.record(storage.OpClear)
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}

func (m *MockStore) ChunksByReview(ctx context.Context, reviewID string) ([]*core.ReviewChunk, error) {
	m.record(storage.OpChunksByReview)
	if m.ChunksByReviewFunc != nil {
		return m.ChunksByReviewFunc(ctx, reviewID)
	}
	return []*core.ReviewChunk{}, nil
}

func (m *MockStore) Sample(ctx context.Context, limit int) ([]*core.ReviewChunk, error) {
	m.record(storage.OpSample)
	if m.SampleFunc != nil {
		return m.SampleFunc(ctx, limit)
	}
	return []*core.ReviewChunk{}, nil
}

func (m *MockStore) Stats(ctx context.Context) (*core.StoreStats, error) {
	m.record(storage.OpStats)
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &core.StoreStats{StarDistribution: map[int]int{}}, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
