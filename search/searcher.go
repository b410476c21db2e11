package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/reviewsearch/ai"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchMultiplier is how many candidates per requested result each
// sub-query fetches before merging.
const (
	DefaultFetchMultiplier = 4
	MinFetchMultiplier     = 3
	MaxFetchMultiplier     = 5
)

// Searcher provides hybrid semantic and keyword search over review chunks.
type Searcher struct {
	store           storage.ChunkStore
	embedder        ai.Embedder
	processor       *QueryProcessor
	enhance         bool
	fetchMultiplier int
	monitor         SearchMonitor
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithFetchMultiplier sets how many candidates per requested result the
// sub-queries fetch. Allowed values are 3 to 5.
func WithFetchMultiplier(n int) Option {
	return func(s *Searcher) error {
		if n < MinFetchMultiplier || n > MaxFetchMultiplier {
			return fmt.Errorf("%w: %d", ErrInvalidFetchMultiplier, n)
		}
		s.fetchMultiplier = n
		return nil
	}
}

// WithQueryEnhancement makes searches embed the synonym-enhanced query and run
// the keyword sub-query with the extracted keyword query.
// Default is disabled.
func WithQueryEnhancement(enabled bool) Option {
	return func(s *Searcher) error {
		s.enhance = enabled
		return nil
	}
}

// WithMonitor sets the monitor used by Search. A nil monitor disables monitoring.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.ChunkStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:           store,
		embedder:        embedder,
		processor:       NewQueryProcessor(),
		fetchMultiplier: DefaultFetchMultiplier,
		monitor:         &noopMonitor{},
		logger:          slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs a hybrid search. Results are ranked by combined score and carry
// both component scores.
func (s *Searcher) Search(ctx context.Context, q core.Query) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, q, s.monitor)
}

// SemanticOnly ranks by vector similarity alone.
func (s *Searcher) SemanticOnly(ctx context.Context, q core.Query) ([]*core.SearchResult, error) {
	q.SemanticWeight, q.KeywordWeight = 1, 0
	return s.Search(ctx, q)
}

// KeywordOnly ranks by full-text relevance alone. The query is not embedded.
func (s *Searcher) KeywordOnly(ctx context.Context, q core.Query) ([]*core.SearchResult, error) {
	q.SemanticWeight, q.KeywordWeight = 0, 1
	return s.Search(ctx, q)
}

// SearchWithMonitor runs a hybrid search reporting to monitor instead of the
// searcher's own monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q core.Query, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	started := time.Now()
	monitor.Start(q)

	results, err := s.search(ctx, q, monitor)
	if err != nil {
		monitor.Failed(err)
		return nil, err
	}

	monitor.Finish(results, time.Since(started))
	return results, nil
}

func (s *Searcher) search(ctx context.Context, q core.Query, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if err := core.ValidateQuery(q); err != nil {
		return nil, err
	}

	hits, err := s.fetch(ctx, q, monitor)
	if err != nil {
		return nil, err
	}

	results := Merge(hits.semantic, hits.keyword, q)
	s.logger.Debug("search complete",
		"query", q.RawText,
		"semantic_hits", len(hits.semantic),
		"keyword_hits", len(hits.keyword),
		"results", len(results))
	return results, nil
}

// candidates holds the raw sub-query results of one search.
type candidates struct {
	semantic []*core.Match
	keyword  []*core.Match
}

// fetch embeds the query and runs the sub-queries whose weight is positive.
// A failed sub-query leaves its list empty unless every sub-query failed.
func (s *Searcher) fetch(ctx context.Context, q core.Query, monitor SearchMonitor) (*candidates, error) {
	embedText, keywordText := q.RawText, q.RawText
	if s.enhance {
		processed := s.processor.Process(q.RawText, true)
		if processed.EnhancedText != "" {
			embedText = processed.EnhancedText
		}
		if processed.KeywordQuery != "" {
			keywordText = processed.KeywordQuery
		}
	}

	runSemantic := q.SemanticWeight > 0
	runKeyword := q.KeywordWeight > 0
	fetchLimit := q.MaxResults * s.fetchMultiplier

	var vector []float32
	if runSemantic {
		embedStart := time.Now()
		v, err := s.embedder.EmbedText(ctx, embedText)
		if err != nil {
			s.logger.Error("error generating embedding for query", "query", q.RawText, "err", err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
		}
		vector = v
		monitor.AfterEmbedding(time.Since(embedStart))
	}

	var (
		hits                    candidates
		semanticErr, keywordErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	if runSemantic {
		g.Go(func() error {
			hits.semantic, semanticErr = s.store.QuerySimilar(gctx, vector, q.MatchThreshold, fetchLimit)
			return nil
		})
	}
	if runKeyword {
		g.Go(func() error {
			hits.keyword, keywordErr = s.store.QueryKeyword(gctx, keywordText, fetchLimit)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failures []error
	if semanticErr != nil {
		hits.semantic = nil
		failures = append(failures, s.subqueryFailed(monitor, SubquerySemantic, semanticErr))
	} else if runSemantic {
		monitor.AfterSemanticSearch(hits.semantic)
	}
	if keywordErr != nil {
		hits.keyword = nil
		failures = append(failures, s.subqueryFailed(monitor, SubqueryKeyword, keywordErr))
	} else if runKeyword {
		monitor.AfterKeywordSearch(hits.keyword)
	}

	if (!runSemantic || semanticErr != nil) && (!runKeyword || keywordErr != nil) {
		return nil, errors.Join(append([]error{ErrAllSubqueriesFailed}, failures...)...)
	}
	return &hits, nil
}

func (s *Searcher) subqueryFailed(monitor SearchMonitor, subquery string, err error) error {
	s.logger.Warn("search sub-query failed, degrading", "subquery", subquery, "err", err)
	monitor.SubqueryFailed(subquery, err)
	return fmt.Errorf("%s: %w", subquery, err)
}

// Processor returns the query processor used for query enhancement.
func (s *Searcher) Processor() *QueryProcessor {
	return s.processor
}
