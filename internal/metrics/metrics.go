package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_cache_hits_total",
			Help: "Number of stage cache hits",
		},
		[]string{"stage"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_cache_misses_total",
			Help: "Number of stage cache misses",
		},
		[]string{"stage"},
	)

	// Corrupt entries are also counted as misses.
	CacheCorrupt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_cache_corrupt_total",
			Help: "Number of cache entries that failed to deserialize",
		},
		[]string{"stage"},
	)

	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_pipeline_documents_total",
			Help: "Documents handled by the pipeline, by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docgraph_pipeline_stage_duration_seconds",
			Help:    "Time spent computing a pipeline stage (cache hits included)",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
		},
		[]string{"stage"},
	)

	ResolverOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_resolver_outcomes_total",
			Help: "Entity resolution outcomes",
		},
		[]string{"outcome"},
	)

	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_external_calls_total",
			Help: "Calls made to external services (parser, llm, embedder)",
		},
		[]string{"service"},
	)
)
