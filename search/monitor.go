package search

import (
	"time"

	"github.com/poiesic/reviewsearch/core"
)

// Sub-query names reported to monitors and logs.
const (
	SubquerySemantic = "semantic"
	SubqueryKeyword  = "keyword"
)

// SearchMonitor provides hooks to observe the search process.
// All hooks are called from the goroutine that called Search.
type SearchMonitor interface {
	Start(query core.Query)
	AfterEmbedding(elapsed time.Duration)
	AfterSemanticSearch(matches []*core.Match)
	AfterKeywordSearch(matches []*core.Match)
	SubqueryFailed(subquery string, err error)
	Failed(err error)
	Finish(results []*core.SearchResult, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query)                             {}
func (n *noopMonitor) AfterEmbedding(_ time.Duration)                 {}
func (n *noopMonitor) AfterSemanticSearch(_ []*core.Match)            {}
func (n *noopMonitor) AfterKeywordSearch(_ []*core.Match)             {}
func (n *noopMonitor) SubqueryFailed(_ string, _ error)               {}
func (n *noopMonitor) Failed(_ error)                                 {}
func (n *noopMonitor) Finish(_ []*core.SearchResult, _ time.Duration) {}
