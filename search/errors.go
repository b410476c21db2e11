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

package search

import "errors"

var (
	// ErrStoreRequired is returned when a chunk store is not provided.
	ErrStoreRequired = errors.New("chunk store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrQueryEmbedding is returned when the query text cannot be embedded.
	ErrQueryEmbedding = errors.New("query embedding failed")

	// ErrAllSubqueriesFailed is returned when every sub-query of a search failed.
	// It is joined with the individual causes.
	ErrAllSubqueriesFailed = errors.New("all search sub-queries failed")

	// ErrInvalidFetchMultiplier is returned for a fetch multiplier outside 3-5.
	ErrInvalidFetchMultiplier = errors.New("fetch multiplier must be between 3 and 5")
)
