package chunker

import (
	"unicode/utf8"

	"github.com/poiesic/reviewsearch/core"
)

// Stats summarizes a set of chunks.
type Stats struct {
	TotalChunks     int
	AvgLength       float64
	MinLength       int
	MaxLength       int
	TotalCharacters int
}

// ComputeStats calculates length statistics for chunks. Lengths are in characters.
// Returns a zero Stats for an empty input.
func ComputeStats(chunks []*core.ReviewChunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks: len(chunks),
		MinLength:   utf8.RuneCountInString(chunks[0].Text),
	}
	for _, chunk := range chunks {
		length := utf8.RuneCountInString(chunk.Text)
		stats.TotalCharacters += length
		stats.MinLength = min(stats.MinLength, length)
		stats.MaxLength = max(stats.MaxLength, length)
	}
	stats.AvgLength = float64(stats.TotalCharacters) / float64(stats.TotalChunks)
	return stats
}
