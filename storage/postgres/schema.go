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

package postgres

import (
	"context"
	"fmt"
)

const createExtensionSQL = "CREATE EXTENSION IF NOT EXISTS vector"

// schemaStatements returns the DDL that creates the chunk table and its indexes.
func (s *Store) schemaStatements() []string {
	return []string{
		createExtensionSQL,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		review_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL CHECK (chunk_index >= 0),
		chunk_text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		star_rating SMALLINT NOT NULL CHECK (star_rating BETWEEN 1 AND 5),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		text_search tsvector GENERATED ALWAYS AS (to_tsvector('english', chunk_text)) STORED,
		UNIQUE (review_id, chunk_index)
	)`, s.tableIdent, s.dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)",
			s.indexIdent("embedding_idx"), s.tableIdent),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (text_search)",
			s.indexIdent("text_search_idx"), s.tableIdent),
	}
}

// EnsureSchema creates the vector extension, the chunk table and its indexes
// if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	s.logger.Debug("schema ready", "table", s.table, "dimension", s.dimension)
	return nil
}
