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

// Package postgres implements storage.ChunkStore on PostgreSQL with the
// pgvector extension.
//
// Chunks live in a single table with a fixed-dimension vector column indexed
// by HNSW (cosine) and a generated tsvector column indexed by GIN, so the
// full-text index always matches the chunk text. Similarity is
// 1 - (embedding <=> query); keyword rank is ts_rank against plainto_tsquery.
//
//	store, err := postgres.New(ctx, "postgres://localhost/reviews", postgres.WithDimension(384))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
package postgres
