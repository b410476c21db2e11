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

import "errors"

// Domain validation errors
var (
	// ErrInvalidReview indicates a Review failed validation.
	ErrInvalidReview = errors.New("invalid review")

	// ErrInvalidChunk indicates a ReviewChunk failed validation.
	ErrInvalidChunk = errors.New("invalid review chunk")

	// ErrInvalidQuery indicates a Query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyContent indicates the text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyReviewID indicates a chunk has no owning review.
	ErrEmptyReviewID = errors.New("review id cannot be empty")

	// ErrInvalidStarRating indicates a rating outside 1-5.
	ErrInvalidStarRating = errors.New("star rating must be between 1 and 5")

	// ErrInvalidChunkIndex indicates a negative chunk index.
	ErrInvalidChunkIndex = errors.New("chunk index cannot be negative")

	// ErrEmptyVector indicates a chunk has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidWeights indicates negative weights or weights that do not sum to a positive value.
	ErrInvalidWeights = errors.New("weights must be non-negative and sum to a positive value")

	// ErrInvalidThreshold indicates a similarity threshold outside [-1, 1].
	ErrInvalidThreshold = errors.New("match threshold must be between -1 and 1")

	// ErrInvalidMaxResults indicates a non-positive result cap.
	ErrInvalidMaxResults = errors.New("max results must be greater than 0")
)
