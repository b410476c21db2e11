package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/reviewsearch/core"
)

// Merge combines semantic and keyword matches into ranked results.
//
// Semantic scores are taken as is. Keyword scores are divided by the highest
// keyword score in the batch, or set to 0 when that maximum is not positive.
// The combined score is the weighted mean of both, with a missing component
// counted as 0. The matches of a component whose weight is 0 are ignored.
// Results are sorted by combined score, then semantic score (both descending),
// then chunk id, and truncated to q.MaxResults.
func Merge(semantic, keyword []*core.Match, q core.Query) []*core.SearchResult {
	if q.SemanticWeight == 0 {
		semantic = nil
	}
	if q.KeywordWeight == 0 {
		keyword = nil
	}

	merged := make(map[core.ID]*core.SearchResult, len(semantic)+len(keyword))
	order := make([]*core.SearchResult, 0, len(semantic)+len(keyword))
	entry := func(chunk *core.ReviewChunk) *core.SearchResult {
		if r, ok := merged[chunk.Id]; ok {
			return r
		}
		r := &core.SearchResult{
			ChunkID:    chunk.Id,
			ReviewID:   chunk.ReviewID,
			Text:       chunk.Text,
			ChunkIndex: chunk.ChunkIndex,
			StarRating: chunk.StarRating,
		}
		merged[chunk.Id] = r
		order = append(order, r)
		return r
	}

	for _, m := range semantic {
		if m == nil || m.Chunk == nil {
			continue
		}
		score := m.Score
		entry(m.Chunk).SemanticScore = &score
	}

	maxRank := 0.0
	for _, m := range keyword {
		if m != nil && m.Chunk != nil {
			maxRank = max(maxRank, m.Score)
		}
	}
	for _, m := range keyword {
		if m == nil || m.Chunk == nil {
			continue
		}
		score := 0.0
		if maxRank > 0 {
			score = m.Score / maxRank
		}
		entry(m.Chunk).KeywordScore = &score
	}

	total := q.TotalWeight()
	for _, r := range order {
		r.CombinedScore = (q.SemanticWeight*valueOf(r.SemanticScore) + q.KeywordWeight*valueOf(r.KeywordScore)) / total
	}

	slices.SortStableFunc(order, compareResults)
	if q.MaxResults > 0 && len(order) > q.MaxResults {
		order = order[:q.MaxResults]
	}
	return order
}

func compareResults(a, b *core.SearchResult) int {
	if c := cmp.Compare(b.CombinedScore, a.CombinedScore); c != 0 {
		return c
	}
	if c := cmp.Compare(valueOf(b.SemanticScore), valueOf(a.SemanticScore)); c != 0 {
		return c
	}
	return cmp.Compare(a.ChunkID, b.ChunkID)
}

func valueOf(score *float64) float64 {
	if score == nil {
		return 0
	}
	return *score
}
