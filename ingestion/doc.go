// Package ingestion provides pipeline orchestration for indexing restaurant reviews.
//
// The Pipeline type manages the ingestion workflow for each review:
//   - Splitting the review into chunks
//   - Embedding every chunk
//   - Storing all chunks of the review in one batch
//
// A review is stored only after all of its chunks are embedded, so a failed
// review leaves nothing behind. Reviews are scheduled on a worker pool; the
// default pool size of 1 keeps the embedding client's request pacing global.
package ingestion
