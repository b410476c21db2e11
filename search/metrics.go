package search

import (
	"time"

	"github.com/poiesic/reviewsearch/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reviewsearch"

// MetricsMonitor is a SearchMonitor that records Prometheus metrics.
type MetricsMonitor struct {
	searches          *prometheus.CounterVec
	duration          prometheus.Histogram
	embeddingDuration prometheus.Histogram
	subqueryFailures  *prometheus.CounterVec
	results           prometheus.Histogram
}

var _ SearchMonitor = (*MetricsMonitor)(nil)

// NewMetricsMonitor registers the search metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetricsMonitor(reg prometheus.Registerer) *MetricsMonitor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsMonitor{
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Total number of hybrid searches",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Hybrid search duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		embeddingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "embedding_duration_seconds",
				Help:      "Query embedding duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		subqueryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "subquery_failures_total",
				Help:      "Total number of failed search sub-queries",
			},
			[]string{"subquery"},
		),
		results: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "results",
				Help:      "Number of results returned per search",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
	}
}

func (m *MetricsMonitor) Start(_ core.Query)                  {}
func (m *MetricsMonitor) AfterSemanticSearch(_ []*core.Match) {}
func (m *MetricsMonitor) AfterKeywordSearch(_ []*core.Match)  {}

func (m *MetricsMonitor) AfterEmbedding(elapsed time.Duration) {
	m.embeddingDuration.Observe(elapsed.Seconds())
}

func (m *MetricsMonitor) SubqueryFailed(subquery string, _ error) {
	m.subqueryFailures.WithLabelValues(subquery).Inc()
}

func (m *MetricsMonitor) Failed(_ error) {
	m.searches.WithLabelValues("error").Inc()
}

func (m *MetricsMonitor) Finish(results []*core.SearchResult, elapsed time.Duration) {
	m.searches.WithLabelValues("ok").Inc()
	m.duration.Observe(elapsed.Seconds())
	m.results.Observe(float64(len(results)))
}
