package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reviewsearch/ai"
	"github.com/poiesic/reviewsearch/chunker"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
)

// DefaultPoolSize is the default number of reviews processed concurrently.
const DefaultPoolSize = 1

// Pipeline orchestrates chunking, embedding and storing of reviews.
type Pipeline struct {
	chunker *chunker.Chunker
	pool    *ants.Pool
	proc    processor
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is 1. Larger pools interleave requests from different reviews.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithChunker sets the chunker used to split reviews.
// Default is chunker.New() with default settings.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return ErrChunkerRequired
		}
		p.chunker = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.ChunkStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(DefaultPoolSize)
	if err != nil {
		return nil, err
	}

	defaultChunker, err := chunker.New()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		chunker: defaultChunker,
		pool:    pool,
		logger:  slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create the processor after options are applied so it gets the final config
	proc, err := newEmbeddingProcessor(store, embedder, p.chunker, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.proc = proc

	return p, nil
}

// Failure describes a review that could not be indexed.
type Failure struct {
	Index    int // Position in the Ingest arguments
	ReviewID string
	Err      error
}

// Report summarizes one Ingest call.
type Report struct {
	Reviews   int
	Succeeded int
	Chunks    int
	Failures  []Failure
}

// FailedReviews returns the reviews from the Ingest arguments that failed, in order.
func (r *Report) FailedReviews(reviews []*core.Review) []*core.Review {
	failed := make([]*core.Review, 0, len(r.Failures))
	for _, f := range r.Failures {
		if f.Index >= 0 && f.Index < len(reviews) {
			failed = append(failed, reviews[f.Index])
		}
	}
	return failed
}

// Ingest indexes reviews and waits for all of them to finish.
// A failed review stores nothing and does not stop the others. The report
// lists every failure; the returned error joins them and is nil when every
// review succeeded.
func (p *Pipeline) Ingest(ctx context.Context, reviews ...*core.Review) (*Report, error) {
	type outcome struct {
		chunks int
		err    error
	}
	outcomes := make([]outcome, len(reviews))

	var wg sync.WaitGroup
	for i, review := range reviews {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			stored, err := p.proc.process(ctx, review)
			outcomes[i] = outcome{chunks: len(stored), err: err}
		})
		if err != nil {
			wg.Done()
			outcomes[i] = outcome{err: err}
		}
	}
	wg.Wait()

	report := &Report{Reviews: len(reviews)}
	var errs []error
	for i, o := range outcomes {
		if o.err == nil {
			report.Succeeded++
			report.Chunks += o.chunks
			continue
		}

		reviewID := reviewIdentity(reviews[i])
		report.Failures = append(report.Failures, Failure{Index: i, ReviewID: reviewID, Err: o.err})
		errs = append(errs, fmt.Errorf("review %s: %w", reviewID, o.err))
		p.logger.Warn("review not indexed", "review_id", reviewID, "err", o.err)
	}

	p.logger.Info("ingested reviews",
		"reviews", report.Reviews,
		"succeeded", report.Succeeded,
		"failed", len(report.Failures),
		"chunks", report.Chunks)

	return report, errors.Join(errs...)
}

func reviewIdentity(review *core.Review) string {
	switch {
	case review == nil:
		return "<nil>"
	case review.ID != "":
		return review.ID
	default:
		return core.ReviewIDFromContent(review.Text)
	}
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
