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

// Package storage defines the chunk store abstraction used by reviewsearch.
//
// A ChunkStore persists review chunks with their embeddings and answers two kinds
// of query: vector similarity (1 - cosine distance, strictly above a threshold)
// and keyword search against a full-text index. Implementations live in
// sub-packages:
//
//   - storage/postgres: PostgreSQL with pgvector (production)
//   - storage/badger: embedded BadgerDB with a brute-force vector scan
//   - storage/mock: test double
//
// Every failure is reported as a *StoreError naming the operation. Stores do
// not retry; callers decide.
//
// # Usage
//
//	store, err := badger.NewStore("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
