package core

const (
	// DefaultSemanticWeight is the default relative weight of the semantic score.
	DefaultSemanticWeight = 0.5
	// DefaultKeywordWeight is the default relative weight of the keyword score.
	DefaultKeywordWeight = 0.5
	// DefaultMatchThreshold is the minimum semantic similarity for a semantic hit.
	DefaultMatchThreshold = 0.7
	// DefaultMaxResults caps the number of returned results.
	DefaultMaxResults = 10
)

// Query describes a single hybrid search request.
type Query struct {
	RawText        string
	SemanticWeight float64
	KeywordWeight  float64
	MatchThreshold float64
	MaxResults     int
}

// QueryOption is a functional option for configuring a Query.
type QueryOption func(*Query)

// WithWeights sets the semantic and keyword weights.
func WithWeights(semantic, keyword float64) QueryOption {
	return func(q *Query) {
		q.SemanticWeight = semantic
		q.KeywordWeight = keyword
	}
}

// WithMatchThreshold sets the minimum semantic similarity.
func WithMatchThreshold(threshold float64) QueryOption {
	return func(q *Query) {
		q.MatchThreshold = threshold
	}
}

// WithMaxResults sets the result cap.
func WithMaxResults(n int) QueryOption {
	return func(q *Query) {
		q.MaxResults = n
	}
}

// NewQuery creates a Query with default settings and applies the provided options.
func NewQuery(text string, opts ...QueryOption) Query {
	q := Query{
		RawText:        text,
		SemanticWeight: DefaultSemanticWeight,
		KeywordWeight:  DefaultKeywordWeight,
		MatchThreshold: DefaultMatchThreshold,
		MaxResults:     DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// TotalWeight returns the sum of both weights.
func (q Query) TotalWeight() float64 {
	return q.SemanticWeight + q.KeywordWeight
}
