package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	aimock "github.com/poiesic/reviewsearch/ai/mock"
	"github.com/poiesic/reviewsearch/chunker"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
	"github.com/poiesic/reviewsearch/storage/badger"
	storemock "github.com/poiesic/reviewsearch/storage/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longReview = "The noodles were hand pulled and springy. The broth was rich but salty. Service was quick and friendly."

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.NewMemoryStore(badger.WithDimension(8))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestEmbedder() *aimock.MockEmbedder {
	embedder := aimock.NewMockEmbedder()
	embedder.Dimension = 8
	return embedder
}

func TestEmbeddingProcessor_Process(t *testing.T) {
	store := newTestStore(t)
	embedder := newTestEmbedder()
	c, err := chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(0))
	require.NoError(t, err)

	proc, err := newEmbeddingProcessor(store, embedder, c, nil)
	require.NoError(t, err)

	ctx := context.Background()
	stored, err := proc.process(ctx, &core.Review{ID: "r1", Text: longReview, Stars: 4})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, 3, embedder.CallCount())

	chunks, err := store.ChunksByReview(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, aimock.GenerateVector(chunk.Text, 8), chunk.Vector)
	}
}

func TestEmbeddingProcessor_Process_EmbedderError(t *testing.T) {
	store := storemock.NewMockStore()
	embedder := newTestEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return nil, errors.New("embedder error")
	}
	c, err := chunker.New()
	require.NoError(t, err)

	proc, err := newEmbeddingProcessor(store, embedder, c, slog.Default())
	require.NoError(t, err)

	_, err = proc.process(context.Background(), &core.Review{ID: "r1", Text: "Fine.", Stars: 3})
	assert.EqualError(t, err, "embedder error")
	assert.Equal(t, 0, store.Calls(storage.OpInsertBatch), "nothing is stored when embedding fails")
}

func TestEmbeddingProcessor_Process_CountMismatch(t *testing.T) {
	store := storemock.NewMockStore()
	embedder := newTestEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, _ []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	c, err := chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(0))
	require.NoError(t, err)

	proc, err := newEmbeddingProcessor(store, embedder, c, nil)
	require.NoError(t, err)

	_, err = proc.process(context.Background(), &core.Review{ID: "r1", Text: longReview, Stars: 4})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	assert.Equal(t, 0, store.Calls(storage.OpInsertBatch))
}

func TestNewEmbeddingProcessor_Validation(t *testing.T) {
	c, err := chunker.New()
	require.NoError(t, err)

	_, err = newEmbeddingProcessor(nil, newTestEmbedder(), c, nil)
	assert.Equal(t, ErrStoreRequired, err)
	_, err = newEmbeddingProcessor(storemock.NewMockStore(), nil, c, nil)
	assert.Equal(t, ErrEmbedderRequired, err)
	_, err = newEmbeddingProcessor(storemock.NewMockStore(), newTestEmbedder(), nil, nil)
	assert.Equal(t, ErrChunkerRequired, err)
}

func TestNewPipeline(t *testing.T) {
	store := storemock.NewMockStore()
	embedder := newTestEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(store, embedder)
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, DefaultPoolSize, p.pool.Cap())
		assert.Equal(t, chunker.DefaultChunkSize, p.chunker.ChunkSize())
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewPipeline(nil, embedder)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewPipeline(store, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestPipeline_WithOptions(t *testing.T) {
	store := storemock.NewMockStore()
	embedder := newTestEmbedder()

	t.Run("pool size", func(t *testing.T) {
		p, err := NewPipeline(store, embedder, WithPoolSize(4))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 4, p.pool.Cap())
	})

	t.Run("pool size below one is clamped", func(t *testing.T) {
		p, err := NewPipeline(store, embedder, WithPoolSize(0))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 1, p.pool.Cap())
	})

	t.Run("custom chunker", func(t *testing.T) {
		c, err := chunker.New(chunker.WithChunkSize(120))
		require.NoError(t, err)
		p, err := NewPipeline(store, embedder, WithChunker(c))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 120, p.chunker.ChunkSize())
	})

	t.Run("nil chunker", func(t *testing.T) {
		_, err := NewPipeline(store, embedder, WithChunker(nil))
		assert.Equal(t, ErrChunkerRequired, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		p, err := NewPipeline(store, embedder, WithLogger(nil))
		require.NoError(t, err)
		p.Release()
	})
}

func TestPipeline_Ingest(t *testing.T) {
	store := newTestStore(t)
	embedder := newTestEmbedder()
	c, err := chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(0))
	require.NoError(t, err)

	p, err := NewPipeline(store, embedder, WithChunker(c), WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	report, err := p.Ingest(ctx,
		&core.Review{ID: "r1", Text: longReview, Stars: 4},
		&core.Review{ID: "r2", Text: "Cozy spot with great coffee.", Stars: 5},
		&core.Review{Text: "Cold fries.", Stars: 1},
	)
	require.NoError(t, err)
	assert.Equal(t, &Report{Reviews: 3, Succeeded: 3, Chunks: 5}, report)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	derived, err := store.ChunksByReview(ctx, core.ReviewIDFromContent("Cold fries."))
	require.NoError(t, err)
	assert.Len(t, derived, 1)
}

func TestPipeline_Ingest_PartialFailure(t *testing.T) {
	store := newTestStore(t)
	embedder := newTestEmbedder()
	embedFailure := errors.New("model loading")
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if strings.Contains(texts[0], "broken") {
			return nil, embedFailure
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = aimock.GenerateVector(text, 8)
		}
		return vectors, nil
	}

	p, err := NewPipeline(store, embedder)
	require.NoError(t, err)
	defer p.Release()

	reviews := []*core.Review{
		{ID: "ok", Text: "Lovely brunch.", Stars: 5},
		{ID: "bad-embed", Text: "This one is broken.", Stars: 2},
		{ID: "bad-stars", Text: "Unrated.", Stars: 9},
	}
	report, err := p.Ingest(context.Background(), reviews...)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedFailure)
	assert.ErrorIs(t, err, core.ErrInvalidStarRating)

	assert.Equal(t, 3, report.Reviews)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "bad-embed", report.Failures[0].ReviewID)
	assert.Equal(t, 1, report.Failures[0].Index)
	assert.Equal(t, "bad-stars", report.Failures[1].ReviewID)
	assert.Equal(t, []*core.Review{reviews[1], reviews[2]}, report.FailedReviews(reviews))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "failed reviews persist nothing")
}

func TestPipeline_Ingest_Cancelled(t *testing.T) {
	store := storemock.NewMockStore()
	p, err := NewPipeline(store, newTestEmbedder())
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Ingest(ctx, &core.Review{ID: "r1", Text: "Fine.", Stars: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, store.Calls(storage.OpInsertBatch))
}

func TestPipeline_Ingest_SerialByDefault(t *testing.T) {
	var active, peak atomic.Int32
	embedder := newTestEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0, 0, 0, 0, 0, 0}
		}
		return vectors, nil
	}

	p, err := NewPipeline(storemock.NewMockStore(), embedder)
	require.NoError(t, err)
	defer p.Release()

	reviews := make([]*core.Review, 20)
	for i := range reviews {
		reviews[i] = &core.Review{Text: strings.Repeat("x", i+1) + ".", Stars: 3}
	}
	report, err := p.Ingest(context.Background(), reviews...)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Succeeded)
	assert.Equal(t, int32(1), peak.Load())
}

func TestPipeline_Release(t *testing.T) {
	p, err := NewPipeline(storemock.NewMockStore(), newTestEmbedder())
	require.NoError(t, err)

	p.Release()
	assert.True(t, p.pool.IsClosed())

	report, err := p.Ingest(context.Background(), &core.Review{ID: "r1", Text: "Fine.", Stars: 3})
	assert.Error(t, err)
	require.Len(t, report.Failures, 1)
}
