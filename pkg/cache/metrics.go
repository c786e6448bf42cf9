package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store layer labels.
const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

var (
	// cacheHits tracks cache hits by store layer.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calgo_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"layer"},
	)

	// cacheMisses tracks cache misses by store layer.
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calgo_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"layer"},
	)

	// cacheSize tracks bytes written to the cache by store layer.
	cacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "calgo_cache_size_bytes",
			Help: "Bytes written to the cache",
		},
		[]string{"layer"},
	)

	// cacheErrors tracks cache operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calgo_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "has", "clear"
	)
)
