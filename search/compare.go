package search

import (
	"context"
	"fmt"

	"github.com/poiesic/reviewsearch/core"
)

// Method names used by CompareMethods.
const (
	MethodHybrid   = "hybrid"
	MethodSemantic = "semantic_only"
	MethodKeyword  = "keyword_only"
)

const (
	// DefaultWeightSteps is the number of intervals FindOptimalWeights splits [0, 1] into.
	DefaultWeightSteps = 5

	// FallbackSemanticWeight and FallbackKeywordWeight are recommended when no
	// weight combination could be evaluated.
	FallbackSemanticWeight = 0.6
	FallbackKeywordWeight  = 0.4

	weightTrialResults = 5
)

// Overlap counts chunks shared between the result sets of each method.
type Overlap struct {
	HybridSemantic  int
	HybridKeyword   int
	SemanticKeyword int
	AllThree        int
}

// Comparison holds the results of one query run with each search method.
type Comparison struct {
	Query        string
	Results      map[string][]*core.SearchResult
	ResultCounts map[string]int
	Overlap      Overlap
}

// CompareMethods runs q as a hybrid, a semantic-only and a keyword-only search
// and reports how their results overlap.
func (s *Searcher) CompareMethods(ctx context.Context, q core.Query) (*Comparison, error) {
	methods := []struct {
		name string
		run  func(context.Context, core.Query) ([]*core.SearchResult, error)
	}{
		{MethodHybrid, s.Search},
		{MethodSemantic, s.SemanticOnly},
		{MethodKeyword, s.KeywordOnly},
	}

	comparison := &Comparison{
		Query:        q.RawText,
		Results:      make(map[string][]*core.SearchResult, len(methods)),
		ResultCounts: make(map[string]int, len(methods)),
	}
	ids := make(map[string]map[core.ID]bool, len(methods))
	for _, m := range methods {
		results, err := m.run(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%s search: %w", m.name, err)
		}
		comparison.Results[m.name] = results
		comparison.ResultCounts[m.name] = len(results)
		ids[m.name] = resultIDs(results)
	}

	hybrid, semantic, keyword := ids[MethodHybrid], ids[MethodSemantic], ids[MethodKeyword]
	comparison.Overlap = Overlap{
		HybridSemantic:  intersect(hybrid, semantic),
		HybridKeyword:   intersect(hybrid, keyword),
		SemanticKeyword: intersect(semantic, keyword),
		AllThree:        intersect(hybrid, semantic, keyword),
	}
	return comparison, nil
}

func resultIDs(results []*core.SearchResult) map[core.ID]bool {
	ids := make(map[core.ID]bool, len(results))
	for _, r := range results {
		ids[r.ChunkID] = true
	}
	return ids
}

func intersect(first map[core.ID]bool, rest ...map[core.ID]bool) int {
	n := 0
	for id := range first {
		shared := true
		for _, other := range rest {
			if !other[id] {
				shared = false
				break
			}
		}
		if shared {
			n++
		}
	}
	return n
}

// WeightTrial is the outcome of one weight combination.
type WeightTrial struct {
	Key            string
	SemanticWeight float64
	KeywordWeight  float64
	ResultCount    int
	AvgScore       float64
	HasBothSignals bool
	Err            error
}

// WeightReport is the result of FindOptimalWeights.
type WeightReport struct {
	Query          string
	Trials         []WeightTrial
	SemanticWeight float64
	KeywordWeight  float64
	Recommendation string
}

// FindOptimalWeights searches q with semantic weights 0, 1/steps, ..., 1 (the
// keyword weight being the complement), five results each, and recommends the
// combination with the highest average combined score. The first combination
// wins ties. When every combination fails the fallback weights are recommended.
// Only cancellation fails the whole sweep.
func (s *Searcher) FindOptimalWeights(ctx context.Context, q core.Query, steps int) (*WeightReport, error) {
	if steps <= 0 {
		steps = DefaultWeightSteps
	}

	report := &WeightReport{
		Query:          q.RawText,
		Trials:         make([]WeightTrial, 0, steps+1),
		SemanticWeight: FallbackSemanticWeight,
		KeywordWeight:  FallbackKeywordWeight,
	}

	best := -1
	for i := 0; i <= steps; i++ {
		semantic := float64(i) / float64(steps)
		keyword := 1 - semantic

		trialQuery := q
		trialQuery.SemanticWeight = semantic
		trialQuery.KeywordWeight = keyword
		trialQuery.MaxResults = weightTrialResults

		trial := WeightTrial{
			Key:            fmt.Sprintf("s%.1f_k%.1f", semantic, keyword),
			SemanticWeight: semantic,
			KeywordWeight:  keyword,
		}

		results, err := s.Search(ctx, trialQuery)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			trial.Err = err
			report.Trials = append(report.Trials, trial)
			continue
		}

		trial.ResultCount = len(results)
		hasSemantic, hasKeyword := false, false
		for _, r := range results {
			trial.AvgScore += r.CombinedScore
			hasSemantic = hasSemantic || r.SemanticScore != nil
			hasKeyword = hasKeyword || (r.KeywordScore != nil && *r.KeywordScore > 0)
		}
		if len(results) > 0 {
			trial.AvgScore /= float64(len(results))
		}
		trial.HasBothSignals = hasSemantic && hasKeyword

		report.Trials = append(report.Trials, trial)
		if best < 0 || trial.AvgScore > report.Trials[best].AvgScore {
			best = len(report.Trials) - 1
		}
	}

	if best >= 0 {
		report.SemanticWeight = report.Trials[best].SemanticWeight
		report.KeywordWeight = report.Trials[best].KeywordWeight
	} else {
		s.logger.Warn("no weight combination could be evaluated, using fallback", "query", q.RawText)
	}
	report.Recommendation = fmt.Sprintf("Use semantic=%.1f, keyword=%.1f", report.SemanticWeight, report.KeywordWeight)
	return report, nil
}
