package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks reads served with fresh data by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clothify_cache_hits_total",
			Help: "Total number of query cache hits",
		},
		[]string{"cache", "layer"}, // layer: "memory", "redis"
	)

	// CacheMisses tracks lookups that required an origin fetch
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clothify_cache_misses_total",
			Help: "Total number of query cache misses",
		},
		[]string{"cache"},
	)

	// Warms tracks prefetch requests by outcome
	Warms = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clothify_cache_warms_total",
			Help: "Total number of cache warm requests by outcome",
		},
		[]string{"cache", "outcome"}, // "fresh", "inflight", "started"
	)

	// Fetches tracks origin fetches by result
	Fetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clothify_cache_fetches_total",
			Help: "Total number of origin fetches run by the query cache",
		},
		[]string{"cache", "result"}, // "success", "error"
	)

	// Entries tracks resident entries
	Entries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clothify_cache_entries",
			Help: "Current number of entries in the query cache",
		},
		[]string{"cache"},
	)

	// CacheErrors tracks backing store errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clothify_cache_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "decode", "encode"
	)
)
