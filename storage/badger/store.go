package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
)

// ctxCheckInterval is how many records a scan reads between context checks.
const ctxCheckInterval = 256

// Store is an embedded storage.ChunkStore. Similarity queries scan every chunk;
// keyword queries use an inverted term index written in the same transaction
// as the chunk itself.
type Store struct {
	backend     *Backend
	idSeq       *badger.Sequence
	ownsBackend bool
	closed      atomic.Bool
	dimension   int
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithDimension makes the store reject vectors of any other length.
// Zero accepts any length.
func WithDimension(dim int) Option {
	return func(s *Store) error {
		if dim < 0 {
			return fmt.Errorf("dimension cannot be negative: %d", dim)
		}
		s.dimension = dim
		return nil
	}
}

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "badger-store")
		return nil
	}
}

var _ storage.ChunkStore = (*Store)(nil)

// NewStore opens (or creates) a store in the directory at path.
// Closing the store closes the database.
func NewStore(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("badger store path is required")
	}
	backend, err := OpenBackend(path)
	if err != nil {
		return nil, err
	}
	s, err := NewStoreWithBackend(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}

// NewStoreWithBackend creates a store on an already open backend.
// Closing the store leaves the backend open.
func NewStoreWithBackend(backend *Backend, opts ...Option) (*Store, error) {
	idSeq, err := backend.Sequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	s := &Store{
		backend: backend,
		idSeq:   idSeq,
		logger:  slog.Default().With("component", "badger-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			idSeq.Release()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the ID sequence and, for stores opened with NewStore, the database.
// Later calls are no-ops and every other method returns storage.ErrStorageClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.idSeq.Release()
	if s.ownsBackend {
		err = errors.Join(err, s.backend.Close())
	}
	return err
}

// usable reports why an operation must not start: the store is closed or ctx is done.
func (s *Store) usable(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}

// Insert stores one chunk.
func (s *Store) Insert(ctx context.Context, chunk *core.ReviewChunk) (*core.ReviewChunk, error) {
	stored, err := s.insert(ctx, []*core.ReviewChunk{chunk})
	if err != nil {
		return nil, storage.Wrap(storage.OpInsert, err)
	}
	return stored[0], nil
}

// InsertBatch stores all chunks in a single transaction.
func (s *Store) InsertBatch(ctx context.Context, chunks []*core.ReviewChunk) ([]*core.ReviewChunk, error) {
	stored, err := s.insert(ctx, chunks)
	if err != nil {
		return nil, storage.Wrap(storage.OpInsertBatch, err)
	}
	return stored, nil
}

func (s *Store) insert(ctx context.Context, chunks []*core.ReviewChunk) ([]*core.ReviewChunk, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if err := core.ValidateReviewChunk(chunk); err != nil {
			return nil, err
		}
		if err := s.checkDimension(chunk.Vector); err != nil {
			return nil, err
		}
	}
	if len(chunks) == 0 {
		return []*core.ReviewChunk{}, nil
	}

	now := time.Now().UTC()
	stored := make([]*core.ReviewChunk, len(chunks))
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for i, chunk := range chunks {
			reviewKey := makeReviewKey(chunk.ReviewID, chunk.ChunkIndex)
			if _, err := tx.Get(reviewKey); err == nil {
				return fmt.Errorf("%w: review %q chunk %d", storage.ErrDuplicateChunk, chunk.ReviewID, chunk.ChunkIndex)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			id, err := s.nextID()
			if err != nil {
				return err
			}
			record := *chunk
			record.Id = id
			record.CreatedAt = now

			value, err := storage.MarshalChunk(&record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(id), value); err != nil {
				return err
			}
			if err := tx.Set(reviewKey, storage.MarshalID(id)); err != nil {
				return err
			}
			for term, tf := range termFrequencies(record.Text) {
				if err := tx.Set(makeTermKey(term, id), encodeFrequency(tf)); err != nil {
					return err
				}
			}
			stored[i] = &record
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("stored chunks", "count", len(stored))
	return stored, nil
}

// nextID returns the next sequence value, skipping zero.
func (s *Store) nextID() (core.ID, error) {
	next, err := s.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if next == 0 {
		if next, err = s.idSeq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}

// QuerySimilar scans every chunk and keeps those whose cosine similarity to
// vector is strictly greater than threshold.
func (s *Store) QuerySimilar(ctx context.Context, vector []float32, threshold float64, limit int) ([]*core.Match, error) {
	if err := s.usable(ctx); err != nil {
		return nil, storage.Wrap(storage.OpQuerySimilar, err)
	}
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.Wrap(storage.OpQuerySimilar,
			fmt.Errorf("%w: vector length %d, limit %d", storage.ErrInvalidQuery, len(vector), limit))
	}
	if err := s.checkDimension(vector); err != nil {
		return nil, storage.Wrap(storage.OpQuerySimilar, err)
	}

	var matches []*core.Match
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return s.scanChunks(ctx, tx, func(chunk *core.ReviewChunk) error {
			if len(chunk.Vector) != len(vector) {
				return nil
			}
			if similarity := cosineSimilarity(vector, chunk.Vector); similarity > threshold {
				matches = append(matches, &core.Match{Chunk: chunk, Score: similarity})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, storage.Wrap(storage.OpQuerySimilar, err)
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// QueryKeyword returns chunks containing every non-stop-word term of text,
// ranked by a log term frequency times inverse document frequency score.
func (s *Store) QueryKeyword(ctx context.Context, text string, limit int) ([]*core.Match, error) {
	if err := s.usable(ctx); err != nil {
		return nil, storage.Wrap(storage.OpQueryKeyword, err)
	}
	if limit <= 0 {
		return nil, storage.Wrap(storage.OpQueryKeyword,
			fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit))
	}
	terms := uniqueTerms(text)
	if len(terms) == 0 {
		return []*core.Match{}, nil
	}

	var matches []*core.Match
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		total, err := countChunks(ctx, tx)
		if err != nil {
			return err
		}

		scores := make(map[core.ID]float64)
		for i, term := range terms {
			postings, err := readPostings(tx, term)
			if err != nil {
				return err
			}
			if len(postings) == 0 {
				scores = nil
				break
			}
			idf := math.Log(1 + float64(total)/float64(len(postings)))
			next := make(map[core.ID]float64, len(postings))
			for id, tf := range postings {
				prev, seen := scores[id]
				if i > 0 && !seen {
					continue
				}
				next[id] = prev + (1+math.Log(float64(max(tf, 1))))*idf
			}
			scores = next
			if len(scores) == 0 {
				break
			}
		}

		for id, score := range scores {
			chunk, err := readChunk(tx, id)
			if err != nil {
				return err
			}
			if chunk != nil {
				matches = append(matches, &core.Match{Chunk: chunk, Score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, storage.Wrap(storage.OpQueryKeyword, err)
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []*core.Match{}
	}
	return matches, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.usable(ctx); err != nil {
		return 0, storage.Wrap(storage.OpCount, err)
	}
	var total int
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		total, err = countChunks(ctx, tx)
		return err
	}, false)
	if err != nil {
		return 0, storage.Wrap(storage.OpCount, err)
	}
	return total, nil
}

// Clear removes every chunk and index entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.usable(ctx); err != nil {
		return storage.Wrap(storage.OpClear, err)
	}
	removed, err := s.backend.DeletePrefixes(chunkPrefix, reviewIndexPrefix, termIndexPrefix)
	if err != nil {
		return storage.Wrap(storage.OpClear, err)
	}
	s.logger.Info("cleared store", "keys", removed)
	return nil
}

// ChunksByReview returns a review's chunks ordered by chunk index.
func (s *Store) ChunksByReview(ctx context.Context, reviewID string) ([]*core.ReviewChunk, error) {
	if err := s.usable(ctx); err != nil {
		return nil, storage.Wrap(storage.OpChunksByReview, err)
	}
	chunks := []*core.ReviewChunk{}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialReviewKey(reviewID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			chunk, err := readChunk(tx, id)
			if err != nil {
				return err
			}
			if chunk != nil {
				chunks = append(chunks, chunk)
			}
		}
		return ctx.Err()
	}, false)
	if err != nil {
		return nil, storage.Wrap(storage.OpChunksByReview, err)
	}
	return chunks, nil
}

// Sample returns up to limit chunks in insertion order.
func (s *Store) Sample(ctx context.Context, limit int) ([]*core.ReviewChunk, error) {
	if err := s.usable(ctx); err != nil {
		return nil, storage.Wrap(storage.OpSample, err)
	}
	if limit <= 0 {
		return nil, storage.Wrap(storage.OpSample, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit))
	}
	chunks := make([]*core.ReviewChunk, 0, limit)
	errLimit := errors.New("limit reached")
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return s.scanChunks(ctx, tx, func(chunk *core.ReviewChunk) error {
			chunks = append(chunks, chunk)
			if len(chunks) >= limit {
				return errLimit
			}
			return nil
		})
	}, false)
	if err != nil && !errors.Is(err, errLimit) {
		return nil, storage.Wrap(storage.OpSample, err)
	}
	return chunks, nil
}

// Stats summarizes the stored chunks.
func (s *Store) Stats(ctx context.Context) (*core.StoreStats, error) {
	if err := s.usable(ctx); err != nil {
		return nil, storage.Wrap(storage.OpStats, err)
	}
	stats := &core.StoreStats{StarDistribution: make(map[int]int)}
	reviews := make(map[string]struct{})
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return s.scanChunks(ctx, tx, func(chunk *core.ReviewChunk) error {
			stats.TotalChunks++
			stats.StarDistribution[chunk.StarRating]++
			reviews[chunk.ReviewID] = struct{}{}
			return nil
		})
	}, false)
	if err != nil {
		return nil, storage.Wrap(storage.OpStats, err)
	}

	stats.UniqueReviews = len(reviews)
	if stats.UniqueReviews > 0 {
		avg := float64(stats.TotalChunks) / float64(stats.UniqueReviews)
		stats.AvgChunksPerReview = math.Round(avg*100) / 100
	}
	return stats, nil
}

// scanChunks calls fn for every stored chunk in id order.
func (s *Store) scanChunks(ctx context.Context, tx *badger.Txn, fn func(*core.ReviewChunk) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(chunkPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	seen := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if seen%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		seen++

		var chunk *core.ReviewChunk
		err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) checkDimension(vector []float32) error {
	if s.dimension > 0 && len(vector) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", storage.ErrDimensionMismatch, s.dimension, len(vector))
	}
	return nil
}

// readChunk loads a chunk by id. Returns nil if it doesn't exist.
func readChunk(tx *badger.Txn, id core.ID) (*core.ReviewChunk, error) {
	item, err := tx.Get(makeChunkKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var chunk *core.ReviewChunk
	err = item.Value(func(val []byte) error {
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// readPostings returns chunk id to term frequency for one term.
func readPostings(tx *badger.Txn, term string) (map[core.ID]int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialTermKey(term)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	postings := make(map[core.ID]int)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		id := idFromPostingKey(item.Key())
		err := item.Value(func(val []byte) error {
			postings[id] = decodeFrequency(val)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return postings, nil
}

func countChunks(ctx context.Context, tx *badger.Txn) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(chunkPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	total := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if total%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		total++
	}
	return total, nil
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, term := range core.Tokenize(text) {
		freq[term]++
	}
	return freq
}

func uniqueTerms(text string) []string {
	terms := core.Tokenize(text)
	slices.Sort(terms)
	return slices.Compact(terms)
}

// sortMatches orders by score descending, then id ascending.
func sortMatches(matches []*core.Match) {
	slices.SortFunc(matches, func(a, b *core.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.Id, b.Chunk.Id)
	})
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
