package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherscope_upstream_calls_total",
			Help: "Total upstream API calls by source and status",
		},
		[]string{"source", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherscope_upstream_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SearchCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherscope_search_cache_lookups_total",
			Help: "Granule search cache lookups by result",
		},
		[]string{"result"},
	)

	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherscope_fallbacks_total",
			Help: "Precise-path failures that degraded to the fast source",
		},
		[]string{"reason"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherscope_decisions_total",
			Help: "Completed decisions by mode and primary source outcome",
		},
		[]string{"mode", "primary"},
	)
)
