package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rowColumns = []string{"id", "review_id", "chunk_index", "chunk_text", "embedding", "star_rating", "created_at", "score"}

func newMockStore(t *testing.T, opts ...Option) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	opts = append([]Option{WithDimension(3)}, opts...)
	store, err := NewWithDB(mock, opts...)
	require.NoError(t, err)
	return store, mock
}

func testChunk(reviewID string, index int) *core.ReviewChunk {
	return &core.ReviewChunk{
		ReviewID:   reviewID,
		Text:       "the ramen was excellent",
		ChunkIndex: index,
		Vector:     []float32{0.1, 0.2, 0.3},
		StarRating: 5,
	}
}

func TestNewWithDB(t *testing.T) {
	_, err := NewWithDB(nil)
	assert.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithDB(mock, WithTable(""))
	assert.Error(t, err)

	_, err = NewWithDB(mock, WithDimension(0))
	assert.Error(t, err)

	store, err := NewWithDB(mock, WithTable("chunks"))
	require.NoError(t, err)
	assert.Equal(t, `"chunks"`, store.tableIdent)
	assert.Equal(t, `"chunks_embedding_idx"`, store.indexIdent("embedding_idx"))
	assert.NoError(t, store.Close())
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(createExtensionSQL)).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`(?s)CREATE TABLE IF NOT EXISTS "review_chunks" .*embedding vector\(3\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "review_chunks_embedding_idx" .* USING hnsw`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS "review_chunks_text_search_idx" .* USING GIN`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(createExtensionSQL)).WillReturnError(errors.New("permission denied"))

	err := store.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestInsertBatch(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "review_chunks"`).
		WithArgs("r1", 0, "the ramen was excellent", pgxmock.AnyArg(), 5).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))
	mock.ExpectQuery(`INSERT INTO "review_chunks"`).
		WithArgs("r1", 1, "the ramen was excellent", pgxmock.AnyArg(), 5).
		WillReturnRows(mock.NewRows([]string{"id", "created_at"}).AddRow(int64(12), now))
	mock.ExpectCommit()

	stored, err := store.InsertBatch(context.Background(), []*core.ReviewChunk{testChunk("r1", 0), testChunk("r1", 1)})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, core.ID(11), stored[0].Id)
	assert.Equal(t, core.ID(12), stored[1].Id)
	assert.Equal(t, now, stored[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_DuplicateRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "review_chunks"`).
		WithArgs("r1", 0, "the ramen was excellent", pgxmock.AnyArg(), 5).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	stored, err := store.InsertBatch(context.Background(), []*core.ReviewChunk{testChunk("r1", 0)})
	assert.Nil(t, stored)
	assert.ErrorIs(t, err, storage.ErrDuplicateChunk)

	var storeErr *storage.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, storage.OpInsertBatch, storeErr.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Validation(t *testing.T) {
	store, mock := newMockStore(t)

	chunk := testChunk("r1", 0)
	chunk.Vector = []float32{1, 2}
	_, err := store.Insert(context.Background(), chunk)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	chunk = testChunk("r1", 0)
	chunk.Vector = nil
	_, err = store.Insert(context.Background(), chunk)
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	// Nothing reaches the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerySimilar(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := mock.NewRows(rowColumns).
		AddRow(int64(1), "r1", 0, "great noodles", pgvector.NewVector([]float32{1, 0, 0}), 5, now, 0.95).
		AddRow(int64(2), "r2", 0, "decent noodles", pgvector.NewVector([]float32{0.8, 0.6, 0}), 3, now, 0.8)
	mock.ExpectQuery(`SELECT .*1 - \(embedding <=> \$1\) AS score FROM "review_chunks" WHERE 1 - \(embedding <=> \$2\) > \$3 ORDER BY embedding <=> \$4 ASC, id ASC LIMIT 5`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 0.7, pgxmock.AnyArg()).
		WillReturnRows(rows)

	matches, err := store.QuerySimilar(context.Background(), []float32{1, 0, 0}, 0.7, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, core.ID(1), matches[0].Chunk.Id)
	assert.Equal(t, "great noodles", matches[0].Chunk.Text)
	assert.Equal(t, []float32{1, 0, 0}, matches[0].Chunk.Vector)
	assert.InDelta(t, 0.95, matches[0].Score, 1e-9)
	assert.Equal(t, 3, matches[1].Chunk.StarRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuerySimilar_InvalidInput(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.QuerySimilar(context.Background(), nil, 0.5, 5)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = store.QuerySimilar(context.Background(), []float32{1, 0, 0}, 0.5, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = store.QuerySimilar(context.Background(), []float32{1, 0}, 0.5, 5)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestQueryKeyword(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := mock.NewRows(rowColumns).
		AddRow(int64(4), "r3", 1, "the pizza crust was perfect", pgvector.NewVector([]float32{0, 1, 0}), 4, now, 0.0607927)
	mock.ExpectQuery(`ts_rank\(text_search, plainto_tsquery\('english', \$1\)\) AS score FROM "review_chunks" WHERE text_search @@ plainto_tsquery\('english', \$2\) ORDER BY score DESC, id ASC LIMIT 10`).
		WithArgs("pizza crust", "pizza crust").
		WillReturnRows(rows)

	matches, err := store.QueryKeyword(context.Background(), "pizza crust", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "r3", matches[0].Chunk.ReviewID)
	assert.Equal(t, 1, matches[0].Chunk.ChunkIndex)
	assert.InDelta(t, 0.0607927, matches[0].Score, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryKeyword_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`plainto_tsquery`).WillReturnError(errors.New("connection reset"))

	_, err := store.QueryKeyword(context.Background(), "pizza", 10)
	var storeErr *storage.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, storage.OpQueryKeyword, storeErr.Op)
}

func TestCountAndClear(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "review_chunks"`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectExec(`TRUNCATE "review_chunks" RESTART IDENTITY`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	require.NoError(t, store.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChunksByReviewAndSample(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := rowColumns[:7]

	mock.ExpectQuery(`FROM "review_chunks" WHERE review_id = \$1 ORDER BY chunk_index ASC`).
		WithArgs("r1").
		WillReturnRows(mock.NewRows(cols).
			AddRow(int64(1), "r1", 0, "first", pgvector.NewVector([]float32{1, 0, 0}), 4, now).
			AddRow(int64(2), "r1", 1, "second", pgvector.NewVector([]float32{0, 1, 0}), 4, now))
	mock.ExpectQuery(`FROM "review_chunks" ORDER BY id ASC LIMIT 1`).
		WillReturnRows(mock.NewRows(cols).
			AddRow(int64(1), "r1", 0, "first", pgvector.NewVector([]float32{1, 0, 0}), 4, now))

	chunks, err := store.ChunksByReview(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "second", chunks[1].Text)

	sample, err := store.Sample(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, sample, 1)

	_, err = store.Sample(context.Background(), 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(DISTINCT review_id\) FROM "review_chunks"`).
		WillReturnRows(mock.NewRows([]string{"count", "count"}).AddRow(int64(10), int64(3)))
	mock.ExpectQuery(`SELECT star_rating, COUNT\(\*\) AS chunks FROM "review_chunks" GROUP BY star_rating`).
		WillReturnRows(mock.NewRows([]string{"star_rating", "chunks"}).
			AddRow(1, int64(2)).
			AddRow(5, int64(8)))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalChunks)
	assert.Equal(t, 3, stats.UniqueReviews)
	assert.Equal(t, map[int]int{1: 2, 5: 8}, stats.StarDistribution)
	assert.InDelta(t, 3.33, stats.AvgChunksPerReview, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
