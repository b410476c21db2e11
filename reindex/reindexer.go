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

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/reviewsearch/chunker"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/ingestion"
	"github.com/poiesic/reviewsearch/storage"
)

// Config holds reindex settings.
type Config struct {
	// BatchSize is the number of reviews to ingest per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of reviews)
	ReportInterval int

	// MaxRetries is the number of times a batch's transient failures are retried
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Clear empties the store before indexing
	Clear bool
}

// DefaultConfig returns the default reindex settings.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Summary describes a finished run.
type Summary struct {
	Reviews int
	Indexed int
	Skipped int // Reviews that can never be indexed
	Chunks  int
	Elapsed time.Duration
}

// Reindexer loads reviews into a store through an ingestion pipeline.
type Reindexer struct {
	store    storage.ChunkStore
	pipeline *ingestion.Pipeline
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReindexer creates a reindexer. A nil config uses DefaultConfig and a nil
// progress writer discards progress output.
func NewReindexer(store storage.ChunkStore, pipeline *ingestion.Pipeline, config *Config, progress io.Writer) (*Reindexer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, config.BatchSize)
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		store:    store,
		pipeline: pipeline,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reindex"),
	}, nil
}

// Run indexes reviews batch by batch. It stops at the first batch whose
// transient failures survive every retry.
func (r *Reindexer) Run(ctx context.Context, reviews []*core.Review) (*Summary, error) {
	summary := &Summary{Reviews: len(reviews)}

	if r.config.Clear {
		if err := r.store.Clear(ctx); err != nil {
			return summary, fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Fprintf(r.progress, "Cleared existing chunks\n")
	}

	if len(reviews) == 0 {
		fmt.Fprintf(r.progress, "No reviews to index (0 reviews)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d reviews (batch size: %d)\n",
		len(reviews), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(reviews), r.config.ReportInterval)
	tracker.Start()

	for batch := range slices.Chunk(reviews, r.config.BatchSize) {
		if err := r.processBatch(ctx, batch, summary); err != nil {
			summary.Elapsed = tracker.Elapsed()
			fmt.Fprintln(r.progress)
			return summary, fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Increment(len(batch))
	}

	tracker.Finish()

	summary.Elapsed = tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d reviews (%d chunks, %d skipped) in %v (%.1f reviews/sec)\n",
		summary.Indexed, summary.Chunks, summary.Skipped, summary.Elapsed.Round(time.Second),
		float64(summary.Indexed)/max(summary.Elapsed.Seconds(), 1e-9))

	return summary, nil
}

// processBatch ingests a batch, retrying only the reviews that failed for a
// transient reason.
func (r *Reindexer) processBatch(ctx context.Context, batch []*core.Review, summary *Summary) error {
	pending := batch
	return RetryWithBackoff(ctx, func(ctx context.Context) error {
		report, err := r.pipeline.Ingest(ctx, pending...)
		summary.Indexed += report.Succeeded
		summary.Chunks += report.Chunks
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var retryable []*core.Review
		var errs []error
		for _, failure := range report.Failures {
			if permanent(failure.Err) {
				summary.Skipped++
				r.logger.Warn("skipping review", "review_id", failure.ReviewID, "err", failure.Err)
				continue
			}
			retryable = append(retryable, pending[failure.Index])
			errs = append(errs, failure.Err)
		}
		pending = retryable
		return errors.Join(errs...)
	}, r.config.MaxRetries+1, r.config.RetryDelay)
}

// permanent reports whether a review failure cannot be fixed by retrying.
func permanent(err error) bool {
	var chunkErr *chunker.ChunkingError
	return errors.Is(err, core.ErrInvalidReview) ||
		errors.Is(err, storage.ErrDuplicateChunk) ||
		errors.As(err, &chunkErr)
}
