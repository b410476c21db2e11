package ai

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of query embeddings kept by NewCachedEmbedder.
const DefaultCacheSize = 256

// CachedEmbedder remembers the embeddings of recently seen texts.
// Repeated searches for the same query skip the embedding service.
type CachedEmbedder struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next with an LRU cache holding up to size embeddings.
// A non-positive size uses DefaultCacheSize.
func NewCachedEmbedder(next Embedder, size int) (*CachedEmbedder, error) {
	if next == nil {
		return nil, ErrEmbedderRequired
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// EmbedText returns the cached embedding for text or asks the wrapped embedder.
// Failures are not cached.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.cache.Get(text); ok {
		return slices.Clone(vector), nil
	}
	vector, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, slices.Clone(vector))
	return vector, nil
}

// EmbedTexts embeds the texts that are not cached in one call to the wrapped
// embedder, preserving input order.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vector, ok := c.cache.Get(text); ok {
			vectors[i] = slices.Clone(vector)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, ErrEmptyResponse
	}
	for j, vector := range fresh {
		vectors[missingIdx[j]] = vector
		c.cache.Add(missing[j], slices.Clone(vector))
	}
	return vectors, nil
}

// Len returns the number of cached embeddings.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

// Purge drops every cached embedding.
func (c *CachedEmbedder) Purge() {
	c.cache.Purge()
}
