package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/reviewsearch/ai/mock"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/ingestion"
	"github.com/poiesic/reviewsearch/storage/badger"
)

func newPipeline(t *testing.T) (*badger.Store, *ingestion.Pipeline) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pipeline, err := ingestion.NewPipeline(store, aimock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)
	return store, pipeline
}

func TestSeedReviewsAreValid(t *testing.T) {
	ids := make(map[string]bool)
	for _, review := range seedReviews {
		require.NoError(t, core.ValidateReview(review))
		assert.False(t, ids[review.ID], "duplicate id %s", review.ID)
		ids[review.ID] = true
	}
}

func TestIngestBatched(t *testing.T) {
	ctx := context.Background()
	store, pipeline := newPipeline(t)

	indexed, err := ingestBatched(ctx, pipeline, reviewsFromSlice(seedReviews[:7]), 3)
	require.NoError(t, err)
	assert.Equal(t, 7, indexed, "the final partial batch is flushed")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.UniqueReviews)

	t.Run("already seeded reviews are skipped", func(t *testing.T) {
		indexed, err := ingestBatched(ctx, pipeline, reviewsFromSlice(seedReviews[:9]), 3)
		require.NoError(t, err)
		assert.Equal(t, 2, indexed)
	})

	t.Run("invalid reviews fail", func(t *testing.T) {
		bad := []*core.Review{{ID: "bad", Text: "fine", Stars: 9}}
		_, err := ingestBatched(ctx, pipeline, reviewsFromSlice(bad), 3)
		assert.ErrorIs(t, err, core.ErrInvalidStarRating)
	})
}

func TestReviewsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.jsonl")
	content := `{"review_id": "a", "text": "Great tacos.", "stars": 5}
{"review_id": "b", "text": "Cold fries.", "label": 0}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	source, err := reviewsFromFile(path)
	require.NoError(t, err)
	reviews := slices.Collect(source)
	require.Len(t, reviews, 2)
	assert.Equal(t, 1, reviews[1].Stars)

	_, err = reviewsFromFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
