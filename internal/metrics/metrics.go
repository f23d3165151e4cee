package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteogramma_fetches_total",
			Help: "Total upstream document fetches",
		},
		[]string{"source", "status"},
	)

	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meteogramma_fetch_latency_seconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	PagesRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteogramma_pages_rendered_total",
			Help: "Total report pages rendered",
		},
		[]string{"page"},
	)

	BaselineCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteogramma_baseline_cache_hits_total",
			Help: "Baseline cache lookups served from memory",
		},
	)

	BaselineCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meteogramma_baseline_cache_misses_total",
			Help: "Baseline cache lookups that recomputed the series",
		},
	)

	EnsembleReductions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meteogramma_ensemble_reductions_total",
			Help: "Per-variable ensemble reductions performed",
		},
		[]string{"variable"},
	)
)
