// Package metrics provides the central Prometheus registry reference for
// the calendar API client. Metrics are defined in their owning packages
// (client, cache, breaker) to maintain modularity and avoid circular
// dependencies.
//
// This package documents the available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - calgo_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - calgo_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - calgo_errors_total{kind} (Counter): Failures by kind (network, http, breaker_open)
//
// Retry Metrics (pkg/client):
//   - calgo_retries_total{kind} (Counter): Retry attempts by failure kind
//   - calgo_retry_backoff_seconds{kind} (Histogram): Backoff duration by failure kind
//   - calgo_retry_exhausted_total{kind} (Counter): Requests that exhausted the retry budget
//
// Cache Metrics (pkg/cache):
//   - calgo_cache_hits_total{layer} (Counter): Cache hits by store layer (memory, redis)
//   - calgo_cache_misses_total{layer} (Counter): Cache misses by store layer
//   - calgo_cache_size_bytes{layer} (Gauge): Bytes written to the cache
//   - calgo_cache_errors_total{operation} (Counter): Cache operation errors
//
// Circuit Breaker Metrics (pkg/breaker):
//   - calgo_breaker_state{breaker} (Gauge): Current state (0=closed, 1=open, 2=half-open)
//   - calgo_breaker_transitions_total{breaker, from, to} (Counter): State transitions
//   - calgo_breaker_rejections_total{breaker} (Counter): Calls rejected while open
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(calgo_cache_hits_total[5m])) /
//   (sum(rate(calgo_cache_hits_total[5m])) + sum(rate(calgo_cache_misses_total[5m])))
//
//   # Breaker Currently Open
//   calgo_breaker_state == 1
//
//   # Request Error Rate
//   rate(calgo_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(calgo_request_duration_seconds_bucket[5m]))
