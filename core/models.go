package core

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks.
// It is assigned by the store when a chunk is inserted.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ReviewIDFromContent derives a stable review identifier for reviews that
// arrive without one.
func ReviewIDFromContent(text string) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(IDFromContent(text)))
	return "review_" + hex.EncodeToString(buf[:])
}

const (
	// MinStarRating is the lowest rating a review can carry.
	MinStarRating = 1
	// MaxStarRating is the highest rating a review can carry.
	MaxStarRating = 5
)

// Review is a source review prior to chunking.
type Review struct {
	ID    string
	Text  string
	Stars int
}

// ReviewChunk is a bounded-length segment of a review together with its embedding.
// Chunks are immutable once stored.
type ReviewChunk struct {
	Id         ID
	ReviewID   string    // Groups chunks produced from the same review
	Text       string
	ChunkIndex int       // Zero-based position within the parent review
	Vector     []float32 // Embedding vector, one dimensionality for every chunk
	StarRating int
	CreatedAt  time.Time // Set by the store on insert
}

// Match is a chunk returned by a store query together with the store's score.
// For similarity queries Score is 1 - cosine distance; for keyword queries it is
// the store's native relevance rank.
type Match struct {
	Chunk *ReviewChunk
	Score float64
}

// SearchResult is a ranked hybrid search hit.
// Component scores are nil when the chunk was not returned by that sub-query.
type SearchResult struct {
	ChunkID       ID
	ReviewID      string
	Text          string
	ChunkIndex    int
	StarRating    int
	SemanticScore *float64
	KeywordScore  *float64
	CombinedScore float64
}

// StoreStats summarizes the contents of a chunk store.
type StoreStats struct {
	TotalChunks        int
	UniqueReviews      int
	StarDistribution   map[int]int
	AvgChunksPerReview float64
}
