package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookup",
			Name:      "search_requests_total",
			Help:      "Search requests by outcome",
		},
		[]string{"outcome"}, // "ok" / "empty" / "not_ready" / "invalid" / "error"
	)

	SearchHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lookup",
			Name:      "search_hits",
			Help:      "Records returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 500, 1000},
		},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookup",
			Name:      "search_cache_total",
			Help:      "Search response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchOnce sync.Once

// RegisterSearchMetrics registers Prometheus search metrics. Must be called from main.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(SearchRequestsTotal)
		prometheus.MustRegister(SearchHits)
		prometheus.MustRegister(SearchCacheTotal)
	})
}
