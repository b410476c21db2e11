package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
)

const (
	// DefaultTable is the chunk table name.
	DefaultTable = "review_chunks"
	// DefaultQueryTimeout bounds every store operation.
	DefaultQueryTimeout = 30 * time.Second

	uniqueViolation = "23505"
)

var chunkColumns = []string{
	"id", "review_id", "chunk_index", "chunk_text", "embedding", "star_rating", "created_at",
}

// DB is the minimal database interface Store depends on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type chunkRow struct {
	ID         int64           `db:"id"`
	ReviewID   string          `db:"review_id"`
	ChunkIndex int             `db:"chunk_index"`
	ChunkText  string          `db:"chunk_text"`
	Embedding  pgvector.Vector `db:"embedding"`
	StarRating int             `db:"star_rating"`
	CreatedAt  time.Time       `db:"created_at"`
}

type matchRow struct {
	chunkRow
	Score float64 `db:"score"`
}

func (r *chunkRow) toChunk() *core.ReviewChunk {
	return &core.ReviewChunk{
		Id:         core.ID(r.ID),
		ReviewID:   r.ReviewID,
		Text:       r.ChunkText,
		ChunkIndex: r.ChunkIndex,
		Vector:     r.Embedding.Slice(),
		StarRating: r.StarRating,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

// Store is a storage.ChunkStore backed by PostgreSQL and pgvector.
type Store struct {
	db           DB
	closer       func()
	table        string
	tableIdent   string
	dimension    int
	queryTimeout time.Duration
	autoMigrate  bool
	psql         squirrel.StatementBuilderType
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithTable sets the chunk table name.
func WithTable(table string) Option {
	return func(s *Store) error {
		if table == "" {
			return errors.New("postgres: table name is required")
		}
		s.table = table
		return nil
	}
}

// WithDimension sets the vector column dimension.
func WithDimension(dim int) Option {
	return func(s *Store) error {
		if dim <= 0 {
			return fmt.Errorf("postgres: dimension must be positive: %d", dim)
		}
		s.dimension = dim
		return nil
	}
}

// WithQueryTimeout bounds every store operation. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) error {
		if d < 0 {
			return fmt.Errorf("postgres: query timeout cannot be negative: %s", d)
		}
		s.queryTimeout = d
		return nil
	}
}

// WithAutoMigrate controls whether New creates the schema. Default is true.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Store) error {
		s.autoMigrate = enabled
		return nil
	}
}

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "postgres-store")
		return nil
	}
}

var _ storage.ChunkStore = (*Store)(nil)

func newStore(db DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:           db,
		table:        DefaultTable,
		dimension:    384,
		queryTimeout: DefaultQueryTimeout,
		autoMigrate:  true,
		psql:         squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:       slog.Default().With("component", "postgres-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.tableIdent = pgx.Identifier{s.table}.Sanitize()
	return s, nil
}

// New connects to the database at dsn. Every pooled connection has the
// pgvector types registered. Unless disabled with WithAutoMigrate(false),
// the schema is created first.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s, err := newStore(nil, opts...)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	// Type registration needs the extension, so it has to exist before the pool connects.
	if s.autoMigrate {
		conn, err := pgx.ConnectConfig(ctx, poolConfig.ConnConfig.Copy())
		if err != nil {
			return nil, fmt.Errorf("postgres: connect: %w", err)
		}
		_, err = conn.Exec(ctx, createExtensionSQL)
		conn.Close(ctx)
		if err != nil {
			return nil, fmt.Errorf("postgres: enable extension: %w", err)
		}
	}

	poolConfig.AfterConnect = pgxvec.RegisterTypes
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	s.db = pool
	s.closer = pool.Close

	if s.autoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB creates a store on an existing connection or pool. The schema is
// not created; call EnsureSchema if needed. Closing the store leaves db open.
func NewWithDB(db DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("postgres: db is required")
	}
	return newStore(db, opts...)
}

func (s *Store) indexIdent(suffix string) string {
	return pgx.Identifier{s.table + "_" + suffix}.Sanitize()
}

// Close closes the pool opened by New.
func (s *Store) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Insert stores one chunk.
func (s *Store) Insert(ctx context.Context, chunk *core.ReviewChunk) (*core.ReviewChunk, error) {
	stored, err := s.insert(ctx, []*core.ReviewChunk{chunk})
	if err != nil {
		return nil, storage.Wrap(storage.OpInsert, err)
	}
	return stored[0], nil
}

// InsertBatch stores chunks in one transaction.
func (s *Store) InsertBatch(ctx context.Context, chunks []*core.ReviewChunk) ([]*core.ReviewChunk, error) {
	stored, err := s.insert(ctx, chunks)
	if err != nil {
		return nil, storage.Wrap(storage.OpInsertBatch, err)
	}
	return stored, nil
}

func (s *Store) insert(ctx context.Context, chunks []*core.ReviewChunk) (stored []*core.ReviewChunk, err error) {
	for _, chunk := range chunks {
		if err := core.ValidateReviewChunk(chunk); err != nil {
			return nil, err
		}
		if len(chunk.Vector) != s.dimension {
			return nil, fmt.Errorf("%w: expected %d, got %d", storage.ErrDimensionMismatch, s.dimension, len(chunk.Vector))
		}
	}
	if len(chunks) == 0 {
		return []*core.ReviewChunk{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("rollback failed: %w; original error: %w", rbErr, err)
			}
			stored = nil
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit: %w", commitErr)
			stored = nil
		}
	}()

	stored = make([]*core.ReviewChunk, 0, len(chunks))
	for _, chunk := range chunks {
		query, args, buildErr := s.psql.Insert(s.tableIdent).
			Columns("review_id", "chunk_index", "chunk_text", "embedding", "star_rating").
			Values(chunk.ReviewID, chunk.ChunkIndex, chunk.Text, pgvector.NewVector(chunk.Vector), chunk.StarRating).
			Suffix("RETURNING id, created_at").
			ToSql()
		if buildErr != nil {
			return nil, buildErr
		}

		var id int64
		var createdAt time.Time
		if scanErr := tx.QueryRow(ctx, query, args...).Scan(&id, &createdAt); scanErr != nil {
			return nil, classify(scanErr, chunk)
		}

		record := *chunk
		record.Id = core.ID(id)
		record.CreatedAt = createdAt.UTC()
		stored = append(stored, &record)
	}
	return stored, nil
}

// QuerySimilar returns chunks with 1 - cosine distance strictly above threshold.
func (s *Store) QuerySimilar(ctx context.Context, vector []float32, threshold float64, limit int) ([]*core.Match, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.Wrap(storage.OpQuerySimilar,
			fmt.Errorf("%w: vector length %d, limit %d", storage.ErrInvalidQuery, len(vector), limit))
	}
	if len(vector) != s.dimension {
		return nil, storage.Wrap(storage.OpQuerySimilar,
			fmt.Errorf("%w: expected %d, got %d", storage.ErrDimensionMismatch, s.dimension, len(vector)))
	}

	v := pgvector.NewVector(vector)
	query, args, err := s.psql.Select(chunkColumns...).
		Column(squirrel.Expr("1 - (embedding <=> ?) AS score", v)).
		From(s.tableIdent).
		Where("1 - (embedding <=> ?) > ?", v, threshold).
		OrderByClause("embedding <=> ? ASC, id ASC", v).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storage.Wrap(storage.OpQuerySimilar, err)
	}

	matches, err := s.selectMatches(ctx, query, args)
	if err != nil {
		return nil, storage.Wrap(storage.OpQuerySimilar, err)
	}
	return matches, nil
}

// QueryKeyword returns chunks matching plainto_tsquery(text), ranked by ts_rank.
func (s *Store) QueryKeyword(ctx context.Context, text string, limit int) ([]*core.Match, error) {
	if limit <= 0 {
		return nil, storage.Wrap(storage.OpQueryKeyword, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit))
	}

	query, args, err := s.psql.Select(chunkColumns...).
		Column(squirrel.Expr("ts_rank(text_search, plainto_tsquery('english', ?)) AS score", text)).
		From(s.tableIdent).
		Where("text_search @@ plainto_tsquery('english', ?)", text).
		OrderBy("score DESC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, storage.Wrap(storage.OpQueryKeyword, err)
	}

	matches, err := s.selectMatches(ctx, query, args)
	if err != nil {
		return nil, storage.Wrap(storage.OpQueryKeyword, err)
	}
	return matches, nil
}

func (s *Store) selectMatches(ctx context.Context, query string, args []any) ([]*core.Match, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []matchRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, err
	}
	matches := make([]*core.Match, len(rows))
	for i := range rows {
		matches[i] = &core.Match{Chunk: rows[i].toChunk(), Score: rows[i].Score}
	}
	return matches, nil
}

func (s *Store) selectChunks(ctx context.Context, builder squirrel.SelectBuilder) ([]*core.ReviewChunk, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []chunkRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, err
	}
	chunks := make([]*core.ReviewChunk, len(rows))
	for i := range rows {
		chunks[i] = rows[i].toChunk()
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := s.psql.Select("COUNT(*)").From(s.tableIdent).ToSql()
	if err != nil {
		return 0, storage.Wrap(storage.OpCount, err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, storage.Wrap(storage.OpCount, err)
	}
	return int(total), nil
}

// Clear removes every chunk and resets the id sequence.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.Exec(ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY", s.tableIdent)); err != nil {
		return storage.Wrap(storage.OpClear, err)
	}
	s.logger.Info("cleared store", "table", s.table)
	return nil
}

// ChunksByReview returns a review's chunks ordered by chunk index.
func (s *Store) ChunksByReview(ctx context.Context, reviewID string) ([]*core.ReviewChunk, error) {
	chunks, err := s.selectChunks(ctx, s.psql.Select(chunkColumns...).
		From(s.tableIdent).
		Where(squirrel.Eq{"review_id": reviewID}).
		OrderBy("chunk_index ASC"))
	if err != nil {
		return nil, storage.Wrap(storage.OpChunksByReview, err)
	}
	return chunks, nil
}

// Sample returns up to limit chunks in insertion order.
func (s *Store) Sample(ctx context.Context, limit int) ([]*core.ReviewChunk, error) {
	if limit <= 0 {
		return nil, storage.Wrap(storage.OpSample, fmt.Errorf("%w: limit %d", storage.ErrInvalidQuery, limit))
	}
	chunks, err := s.selectChunks(ctx, s.psql.Select(chunkColumns...).
		From(s.tableIdent).
		OrderBy("id ASC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, storage.Wrap(storage.OpSample, err)
	}
	return chunks, nil
}

type starCount struct {
	StarRating int   `db:"star_rating"`
	Chunks     int64 `db:"chunks"`
}

// Stats summarizes the stored chunks.
func (s *Store) Stats(ctx context.Context) (*core.StoreStats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query, args, err := s.psql.Select("COUNT(*)", "COUNT(DISTINCT review_id)").From(s.tableIdent).ToSql()
	if err != nil {
		return nil, storage.Wrap(storage.OpStats, err)
	}
	var total, reviews int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total, &reviews); err != nil {
		return nil, storage.Wrap(storage.OpStats, err)
	}

	query, args, err = s.psql.Select("star_rating", "COUNT(*) AS chunks").
		From(s.tableIdent).
		GroupBy("star_rating").
		OrderBy("star_rating").
		ToSql()
	if err != nil {
		return nil, storage.Wrap(storage.OpStats, err)
	}
	var distribution []starCount
	if err := pgxscan.Select(ctx, s.db, &distribution, query, args...); err != nil {
		return nil, storage.Wrap(storage.OpStats, err)
	}

	stats := &core.StoreStats{
		TotalChunks:      int(total),
		UniqueReviews:    int(reviews),
		StarDistribution: make(map[int]int, len(distribution)),
	}
	for _, d := range distribution {
		stats.StarDistribution[d.StarRating] = int(d.Chunks)
	}
	if reviews > 0 {
		stats.AvgChunksPerReview = math.Round(float64(total)/float64(reviews)*100) / 100
	}
	return stats, nil
}

// classify maps a unique violation on (review_id, chunk_index) to ErrDuplicateChunk.
func classify(err error, chunk *core.ReviewChunk) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: review %q chunk %d: %w", storage.ErrDuplicateChunk, chunk.ReviewID, chunk.ChunkIndex, err)
	}
	return err
}
