package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Indexing Prometheus metrics.
var (
	IndexBindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookup",
			Name:      "index_bindings_total",
			Help:      "Bindings consumed by index jobs by outcome",
		},
		[]string{"outcome"}, // "written" / "duplicate" / "null" / "skipped" / "failed"
	)

	IndexCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lookup",
			Name:      "index_commits_total",
			Help:      "Total number of index commits",
		},
	)

	IndexCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lookup",
			Name:      "index_commit_duration_seconds",
			Help:      "Index commit duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	IndexPromotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookup",
			Name:      "index_promotions_total",
			Help:      "Clean rebuild promotions by result",
		},
		[]string{"result"}, // "ok" / "failed" / "discarded"
	)

	IndexJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookup",
			Name:      "index_jobs_total",
			Help:      "Index jobs by mode and result",
		},
		[]string{"mode", "result"},
	)

	IndexGenerationInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lookup",
			Name:      "index_generation_info",
			Help:      "Currently served index generation (value is always 1)",
		},
		[]string{"generation"},
	)
)

var indexingOnce sync.Once

// RegisterIndexingMetrics registers Prometheus indexing metrics. Must be called from main.
func RegisterIndexingMetrics() {
	indexingOnce.Do(func() {
		prometheus.MustRegister(IndexBindingsTotal)
		prometheus.MustRegister(IndexCommitsTotal)
		prometheus.MustRegister(IndexCommitDuration)
		prometheus.MustRegister(IndexPromotionsTotal)
		prometheus.MustRegister(IndexJobsTotal)
		prometheus.MustRegister(IndexGenerationInfo)
	})
}

// SetGeneration marks gen as the served generation.
func SetGeneration(gen string) {
	IndexGenerationInfo.Reset()
	if gen != "" {
		IndexGenerationInfo.WithLabelValues(gen).Set(1)
	}
}
