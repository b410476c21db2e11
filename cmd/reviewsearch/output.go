package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/poiesic/reviewsearch/core"
	"github.com/poiesic/reviewsearch/search"
)

const previewLength = 200

func stars(n int) string {
	n = min(max(n, 0), core.MaxStarRating)
	return strings.Repeat("★", n) + strings.Repeat("☆", core.MaxStarRating-n)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

func score(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *s)
}

func printResults(w io.Writer, results []*core.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	fmt.Fprintf(w, "Found %d results\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s combined=%.3f semantic=%s keyword=%s (review %s, chunk %d)\n",
			i+1, stars(r.StarRating), r.CombinedScore, score(r.SemanticScore), score(r.KeywordScore),
			r.ReviewID, r.ChunkIndex)
		fmt.Fprintf(w, "   %s\n", preview(r.Text))
	}
}

func printExplanation(w io.Writer, pq *search.ProcessedQuery) {
	fmt.Fprintf(w, "Query: %s\n", pq.Original)
	fmt.Fprintf(w, "Category: %s  Sentiment: %s  Intent: %s\n",
		pq.Analysis.MainCategory, pq.Analysis.Sentiment, pq.Analysis.Intent)
	fmt.Fprintf(w, "Keywords: %s\n", strings.Join(pq.Keywords, ", "))
	if pq.Enhanced {
		fmt.Fprintf(w, "Enhanced: %s\n", pq.EnhancedText)
	}
	fmt.Fprintln(w)
}

func printComparison(w io.Writer, comparison *search.Comparison) {
	fmt.Fprintf(w, "Query: %s\n", comparison.Query)
	for _, method := range []string{search.MethodHybrid, search.MethodSemantic, search.MethodKeyword} {
		fmt.Fprintf(w, "  %-14s %d results\n", method, comparison.ResultCounts[method])
	}
	fmt.Fprintln(w, "Overlap:")
	fmt.Fprintf(w, "  hybrid/semantic   %d\n", comparison.Overlap.HybridSemantic)
	fmt.Fprintf(w, "  hybrid/keyword    %d\n", comparison.Overlap.HybridKeyword)
	fmt.Fprintf(w, "  semantic/keyword  %d\n", comparison.Overlap.SemanticKeyword)
	fmt.Fprintf(w, "  all three         %d\n", comparison.Overlap.AllThree)
}

func printWeightReport(w io.Writer, report *search.WeightReport) {
	fmt.Fprintf(w, "Query: %s\n", report.Query)
	for _, trial := range report.Trials {
		if trial.Err != nil {
			fmt.Fprintf(w, "  %s  error: %v\n", trial.Key, trial.Err)
			continue
		}
		fmt.Fprintf(w, "  %s  results=%d avg=%.3f both=%t\n",
			trial.Key, trial.ResultCount, trial.AvgScore, trial.HasBothSignals)
	}
	fmt.Fprintln(w, report.Recommendation)
}

func printStats(w io.Writer, stats *core.StoreStats) {
	fmt.Fprintf(w, "Chunks: %d\n", stats.TotalChunks)
	fmt.Fprintf(w, "Reviews: %d\n", stats.UniqueReviews)
	fmt.Fprintf(w, "Chunks per review: %.2f\n", stats.AvgChunksPerReview)

	ratings := make([]int, 0, len(stats.StarDistribution))
	for rating := range stats.StarDistribution {
		ratings = append(ratings, rating)
	}
	slices.Sort(ratings)
	for _, rating := range ratings {
		fmt.Fprintf(w, "  %s %d\n", stars(rating), stats.StarDistribution[rating])
	}
}

func printChunks(w io.Writer, chunks []*core.ReviewChunk) {
	if len(chunks) == 0 {
		fmt.Fprintln(w, "No chunks")
		return
	}
	for _, chunk := range chunks {
		fmt.Fprintf(w, "[%d] %s review %s chunk %d\n", chunk.Id, stars(chunk.StarRating), chunk.ReviewID, chunk.ChunkIndex)
		fmt.Fprintf(w, "   %s\n", preview(chunk.Text))
	}
}
