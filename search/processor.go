package search

import (
	"regexp"
	"slices"
	"strings"

	"github.com/poiesic/reviewsearch/core"
)

// Query categories, sentiments and intents reported by QueryProcessor.Analyze.
const (
	CategoryGeneral = "general"

	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"

	IntentRecommendation = "seeking_recommendation"
	IntentWarnings       = "seeking_warnings"
	IntentGeneral        = "general_search"
)

const maxSuggestions = 5

var (
	queryUnsupportedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\-'"]+`)

	abbreviations = map[string]string{
		"w/":   "with",
		"w/o":  "without",
		"gt":   "great",
		"thru": "through",
	}
)

type category struct {
	name  string
	terms []string
}

// QueryAnalysis describes what a query is about.
type QueryAnalysis struct {
	MainCategory   string
	Sentiment      string
	Intent         string
	CategoryScores map[string]int
}

// ProcessedQuery is the result of QueryProcessor.Process.
type ProcessedQuery struct {
	Original     string
	Cleaned      string
	EnhancedText string // Text to embed
	KeywordQuery string // Text for the keyword sub-query
	Keywords     []string
	Analysis     QueryAnalysis
	Enhanced     bool
}

// QueryProcessor rewrites restaurant search queries using a small built-in
// vocabulary of synonyms, categories and sentiment words.
type QueryProcessor struct {
	synonyms      map[string][]string
	categories    []category
	positiveWords map[string]bool
	negativeWords map[string]bool
	patterns      []string
}

// NewQueryProcessor creates a processor with the restaurant vocabulary.
func NewQueryProcessor() *QueryProcessor {
	return &QueryProcessor{
		synonyms: map[string][]string{
			"delicious": {"tasty", "flavorful", "amazing", "excellent"},
			"terrible":  {"horrible", "awful", "disgusting", "bad"},
			"good":      {"great", "nice", "decent", "solid"},
			"fast":      {"quick", "speedy", "prompt"},
			"slow":      {"sluggish", "delayed", "lengthy"},
			"expensive": {"costly", "pricey", "overpriced"},
			"cheap":     {"affordable", "inexpensive", "budget"},
			"fresh":     {"crisp", "new", "vibrant"},
			"spicy":     {"hot", "fiery", "zesty"},
			"friendly":  {"nice", "kind", "helpful", "polite"},
			"rude":      {"impolite", "unfriendly", "hostile"},
		},
		// Ordered: ties go to the earlier category.
		categories: []category{
			{"food", []string{"taste", "flavor", "delicious", "fresh", "cooking", "meal"}},
			{"service", []string{"staff", "waiter", "waitress", "server", "friendly"}},
			{"atmosphere", []string{"ambiance", "mood", "decor", "music", "lighting"}},
			{"price", []string{"cost", "expensive", "cheap", "value", "money"}},
			{"location", []string{"parking", "convenient", "accessible"}},
			{"timing", []string{"fast", "slow", "quick", "wait", "time"}},
		},
		positiveWords: setOf("amazing", "excellent", "wonderful", "great", "fantastic",
			"perfect", "love", "best", "awesome", "incredible"),
		negativeWords: setOf("terrible", "horrible", "awful", "worst", "hate",
			"disgusting", "disappointing", "poor", "bad"),
		patterns: []string{
			"delicious food",
			"excellent service",
			"reasonable prices",
			"romantic atmosphere",
			"family friendly",
			"quick service",
			"good value",
			"fresh ingredients",
		},
	}
}

func setOf(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Process cleans, analyzes and, when enhance is set, expands a query.
// Without enhancement both the embedded text and the keyword query are the
// cleaned query.
func (p *QueryProcessor) Process(query string, enhance bool) *ProcessedQuery {
	cleaned := p.Clean(query)
	analysis := p.Analyze(cleaned)
	keywords := p.ExtractKeywords(cleaned)

	processed := &ProcessedQuery{
		Original:     query,
		Cleaned:      cleaned,
		EnhancedText: cleaned,
		KeywordQuery: cleaned,
		Keywords:     keywords,
		Analysis:     analysis,
		Enhanced:     enhance,
	}
	if enhance {
		processed.EnhancedText = p.Enhance(cleaned, analysis)
		processed.KeywordQuery = p.BuildKeywordQuery(keywords, analysis)
	}
	return processed
}

// Clean lowercases the query, expands common abbreviations, removes unusual
// characters and collapses whitespace.
func (p *QueryProcessor) Clean(query string) string {
	words := strings.Fields(strings.ToLower(query))
	for i, w := range words {
		if full, ok := abbreviations[w]; ok {
			words[i] = full
		}
	}
	cleaned := queryUnsupportedChars.ReplaceAllString(strings.Join(words, " "), " ")
	return core.CollapseWhitespace(cleaned)
}

// Analyze guesses the main category, sentiment and intent of a cleaned query.
func (p *QueryProcessor) Analyze(query string) QueryAnalysis {
	words := strings.Fields(query)

	analysis := QueryAnalysis{
		MainCategory:   CategoryGeneral,
		Sentiment:      SentimentNeutral,
		Intent:         IntentGeneral,
		CategoryScores: make(map[string]int),
	}

	best := 0
	for _, c := range p.categories {
		score := 0
		for _, w := range words {
			if slices.Contains(c.terms, w) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		analysis.CategoryScores[c.name] = score
		if score > best {
			best = score
			analysis.MainCategory = c.name
		}
	}

	positive, negative := 0, 0
	for _, w := range words {
		if p.positiveWords[w] {
			positive++
		}
		if p.negativeWords[w] {
			negative++
		}
	}
	switch {
	case positive > negative:
		analysis.Sentiment = SentimentPositive
	case negative > positive:
		analysis.Sentiment = SentimentNegative
	}

	switch {
	case slices.Contains(words, "recommend") || slices.Contains(words, "best"):
		analysis.Intent = IntentRecommendation
	case slices.Contains(words, "avoid") || slices.Contains(words, "worst"):
		analysis.Intent = IntentWarnings
	}

	return analysis
}

// ExtractKeywords returns the distinct words longer than two characters that
// are not stop words, in query order.
func (p *QueryProcessor) ExtractKeywords(query string) []string {
	seen := make(map[string]bool)
	keywords := []string{}
	for _, w := range strings.Fields(query) {
		if len(w) <= 2 || core.IsStopWord(w) || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// Enhance appends up to two synonyms per known word and up to two terms of the
// main category that the query does not already contain.
func (p *QueryProcessor) Enhance(query string, analysis QueryAnalysis) string {
	words := strings.Fields(query)
	enhanced := slices.Clone(words)

	for _, w := range words {
		if synonyms, ok := p.synonyms[w]; ok {
			enhanced = append(enhanced, synonyms[:min(2, len(synonyms))]...)
		}
	}

	for _, c := range p.categories {
		if c.name != analysis.MainCategory {
			continue
		}
		for _, term := range c.terms[:min(2, len(c.terms))] {
			if !strings.Contains(query, term) {
				enhanced = append(enhanced, term)
			}
		}
	}

	return strings.Join(enhanced, " ")
}

// BuildKeywordQuery joins keywords and adds sentiment words for a positive or
// negative query.
func (p *QueryProcessor) BuildKeywordQuery(keywords []string, analysis QueryAnalysis) string {
	parts := slices.Clone(keywords)
	switch analysis.Sentiment {
	case SentimentPositive:
		parts = append(parts, "excellent", "great")
	case SentimentNegative:
		parts = append(parts, "terrible", "bad")
	}
	return strings.Join(parts, " ")
}

// Suggestions returns up to five common queries that start with or contain partial.
func (p *QueryProcessor) Suggestions(partial string) []string {
	partial = strings.ToLower(partial)
	suggestions := []string{}
	for _, pattern := range p.patterns {
		if strings.Contains(pattern, partial) {
			suggestions = append(suggestions, pattern)
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}
	return suggestions
}
