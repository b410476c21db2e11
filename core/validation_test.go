package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateReview(t *testing.T) {
	tests := []struct {
		name    string
		review  *Review
		wantErr error
	}{
		{
			name:    "valid review",
			review:  &Review{ID: "r1", Text: "Loved the dumplings.", Stars: 5},
			wantErr: nil,
		},
		{
			name:    "valid review without id",
			review:  &Review{Text: "Loved the dumplings.", Stars: 4},
			wantErr: nil,
		},
		{
			name:    "nil review",
			review:  nil,
			wantErr: ErrInvalidReview,
		},
		{
			name:    "blank text",
			review:  &Review{ID: "r1", Text: "   ", Stars: 3},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "rating too low",
			review:  &Review{ID: "r1", Text: "ok", Stars: 0},
			wantErr: ErrInvalidStarRating,
		},
		{
			name:    "rating too high",
			review:  &Review{ID: "r1", Text: "ok", Stars: 6},
			wantErr: ErrInvalidStarRating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReview(tt.review)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateReview() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateReview() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReviewChunk(t *testing.T) {
	valid := func() *ReviewChunk {
		return &ReviewChunk{
			ReviewID:   "r1",
			Text:       "Great food.",
			ChunkIndex: 0,
			Vector:     []float32{0.1, 0.2},
			StarRating: 4,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *ReviewChunk)
		nilIn   bool
		wantErr error
	}{
		{name: "valid chunk", mutate: func(c *ReviewChunk) {}},
		{name: "valid chunk with id 0", mutate: func(c *ReviewChunk) { c.Id = 0 }},
		{name: "nil chunk", nilIn: true, wantErr: ErrInvalidChunk},
		{name: "empty review id", mutate: func(c *ReviewChunk) { c.ReviewID = "" }, wantErr: ErrEmptyReviewID},
		{name: "empty text", mutate: func(c *ReviewChunk) { c.Text = "" }, wantErr: ErrEmptyContent},
		{name: "negative index", mutate: func(c *ReviewChunk) { c.ChunkIndex = -1 }, wantErr: ErrInvalidChunkIndex},
		{name: "bad rating", mutate: func(c *ReviewChunk) { c.StarRating = 9 }, wantErr: ErrInvalidStarRating},
		{name: "missing vector", mutate: func(c *ReviewChunk) { c.Vector = nil }, wantErr: ErrEmptyVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chunk *ReviewChunk
			if !tt.nilIn {
				chunk = valid()
				tt.mutate(chunk)
			}
			err := ValidateReviewChunk(chunk)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateReviewChunk() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, ErrInvalidChunk) {
				t.Errorf("ValidateReviewChunk() error = %v, want wrapped %v", err, ErrInvalidChunk)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateReviewChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{name: "defaults", query: NewQuery("tacos")},
		{name: "semantic only", query: NewQuery("tacos", WithWeights(1, 0))},
		{name: "unnormalized weights", query: NewQuery("tacos", WithWeights(3, 1))},
		{name: "blank text", query: NewQuery("  "), wantErr: ErrEmptyContent},
		{name: "zero weights", query: NewQuery("tacos", WithWeights(0, 0)), wantErr: ErrInvalidWeights},
		{name: "negative weight", query: NewQuery("tacos", WithWeights(-1, 2)), wantErr: ErrInvalidWeights},
		{name: "NaN weight", query: NewQuery("tacos", WithWeights(math.NaN(), 1)), wantErr: ErrInvalidWeights},
		{name: "infinite weight", query: NewQuery("tacos", WithWeights(math.Inf(1), 1)), wantErr: ErrInvalidWeights},
		{name: "both weights infinite", query: NewQuery("tacos", WithWeights(math.Inf(1), math.Inf(1))), wantErr: ErrInvalidWeights},
		{name: "negative threshold", query: NewQuery("tacos", WithMatchThreshold(-0.5))},
		{name: "threshold of one", query: NewQuery("tacos", WithMatchThreshold(1))},
		{name: "NaN threshold", query: NewQuery("tacos", WithMatchThreshold(math.NaN())), wantErr: ErrInvalidThreshold},
		{name: "infinite threshold", query: NewQuery("tacos", WithMatchThreshold(math.Inf(-1))), wantErr: ErrInvalidThreshold},
		{name: "threshold above one", query: NewQuery("tacos", WithMatchThreshold(1.5)), wantErr: ErrInvalidThreshold},
		{name: "zero max results", query: NewQuery("tacos", WithMaxResults(0)), wantErr: ErrInvalidMaxResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateQuery() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, ErrInvalidQuery) || !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQuery() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
