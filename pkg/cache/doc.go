// Package cache provides TTL response caching for the calendar API client.
//
// The Store interface is a key/value contract with per-entry TTL and lazy
// expiry: an expired entry behaves exactly like an absent one. Two backends
// implement it:
//
//   - Memory: a sharded in-memory map, process-local.
//   - Redis: a shared store for multi-instance deployments.
//
// # Basic Usage
//
//	store := cache.NewMemory()
//
//	entry, err := cache.NewEntry(resp)
//	if err != nil {
//		return err
//	}
//
//	key := cache.BuildKey("GET", url, req.Header, []string{"Accept-Language"})
//	if err := store.Set(ctx, key.String(), entry, 15*time.Minute); err != nil {
//		return err
//	}
//
//	cached, err := store.Get(ctx, key.String())
//	if err == cache.ErrCacheMiss {
//		// absent or expired - fetch from upstream
//	}
//
// # Cache Keys
//
// BuildKey derives a deterministic key from the request method, the
// normalized URL (sorted query parameters, lowercased host, no trailing
// slash) and the declared variant headers. Accept-Language is the default
// variant header so locale-sensitive calendar responses are cached per
// locale.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - calgo_cache_hits_total{layer} - cache hits by store layer
//   - calgo_cache_misses_total{layer} - cache misses by store layer
//   - calgo_cache_size_bytes{layer} - bytes written to the cache
//   - calgo_cache_errors_total{operation} - cache operation errors
package cache
