package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/reviewsearch/ai"
	"github.com/poiesic/reviewsearch/chunker"
	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/storage"
)

// embeddingProcessor chunks a review, embeds the chunks and stores them.
type embeddingProcessor struct {
	store    storage.ChunkStore
	embedder ai.Embedder
	chunker  *chunker.Chunker
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(store storage.ChunkStore, embedder ai.Embedder, c *chunker.Chunker, logger *slog.Logger) (*embeddingProcessor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if c == nil {
		return nil, ErrChunkerRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		store:    store,
		embedder: embedder,
		chunker:  c,
		logger:   logger.With("processor", "embeddings"),
	}, nil
}

// process indexes one review. Nothing is stored unless every chunk was embedded.
func (ep *embeddingProcessor) process(ctx context.Context, review *core.Review) ([]*core.ReviewChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks, err := ep.chunker.ChunkReview(review)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []*core.ReviewChunk{}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	ep.logger.Debug("generating embeddings for review", "review_id", chunks[0].ReviewID, "chunks", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "review_id", chunks[0].ReviewID, "err", err)
		return nil, err
	}

	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}

	for i := range embeddings {
		chunks[i].Vector = embeddings[i]
	}

	return ep.store.InsertBatch(ctx, chunks)
}
