// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidateReview validates a Review prior to chunking.
//
// Validation rules:
//   - Text must not be blank
//   - Stars must be between 1 and 5
//
// NOT validated:
//   - ID (an empty ID is replaced with a content-derived one)
func ValidateReview(review *Review) error {
	if review == nil {
		return fmt.Errorf("%w: review is nil", ErrInvalidReview)
	}

	if strings.TrimSpace(review.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidReview, ErrEmptyContent)
	}

	if err := ValidateStarRating(review.Stars); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReview, err)
	}

	return nil
}

// ValidateReviewChunk validates a ReviewChunk before it is persisted.
//
// Validation rules:
//   - ReviewID and Text must not be empty
//   - ChunkIndex must not be negative
//   - StarRating must be between 1 and 5
//   - Vector must not be empty
//
// NOT validated (populated by the store):
//   - Id
//   - CreatedAt
func ValidateReviewChunk(chunk *ReviewChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ReviewID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyReviewID)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidChunkIndex)
	}

	if err := ValidateStarRating(chunk.StarRating); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if len(chunk.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyVector)
	}

	return nil
}

// ValidateQuery validates a Query according to search rules.
func ValidateQuery(q Query) error {
	if strings.TrimSpace(q.RawText) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyContent)
	}

	if !finite(q.SemanticWeight) || !finite(q.KeywordWeight) ||
		q.SemanticWeight < 0 || q.KeywordWeight < 0 || q.TotalWeight() <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrInvalidWeights)
	}

	// Cosine similarity lies in [-1, 1].
	if !finite(q.MatchThreshold) || q.MatchThreshold < -1 || q.MatchThreshold > 1 {
		return fmt.Errorf("%w: %w: %v", ErrInvalidQuery, ErrInvalidThreshold, q.MatchThreshold)
	}

	if q.MaxResults <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrInvalidMaxResults)
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateStarRating validates that a rating falls in the 1-5 range.
func ValidateStarRating(stars int) error {
	if stars < MinStarRating || stars > MaxStarRating {
		return fmt.Errorf("%w: value %d", ErrInvalidStarRating, stars)
	}
	return nil
}
