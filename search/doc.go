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

// Package search provides hybrid semantic and keyword search over review chunks.
//
// The Searcher embeds the query, then runs a similarity query and a full-text
// query against the same chunk store concurrently. The two result lists are
// merged by chunk id:
//   - the semantic score is the store's similarity (1 - cosine distance)
//   - the keyword score is the store's rank divided by the best rank in the batch
//
// The combined score is the weighted mean of both, with a missing score counted
// as zero. Results are ordered by combined score, then semantic score, then
// chunk id.
//
// If one sub-query fails the search degrades to the other. The search fails only
// when the query cannot be embedded or when both sub-queries fail.
package search
