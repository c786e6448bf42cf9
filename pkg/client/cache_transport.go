package client

import (
	"context"
	"net/http"
	"time"

	"github.com/calgo-project/calgo/pkg/cache"
	"github.com/rs/zerolog"
)

type contextKey string

const cacheControlKey contextKey = "calgo_cache_control"

// cacheControl holds per-request cache overrides.
type cacheControl struct {
	Disabled bool
	TTL      time.Duration
}

// WithoutCaching returns a context whose request bypasses the cache even
// for idempotent calls.
func WithoutCaching(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheControlKey, &cacheControl{Disabled: true})
}

// WithCacheTTL returns a context whose request is cached with ttl instead
// of the configured default. Callers use this to keep volatile data on a
// short TTL and immutable historical data on a long one.
func WithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheControlKey, &cacheControl{TTL: ttl})
}

// cacheTransport short-circuits repeatable GET calls with a cached response
// inside a TTL window. Mutating calls always bypass the cache and never
// invalidate entries; invalidation is the caller's responsibility.
type cacheTransport struct {
	next        Doer
	store       cache.Store
	ttl         time.Duration
	varyHeaders []string
	logger      zerolog.Logger
}

func (t *cacheTransport) Do(req *http.Request) (*http.Response, error) {
	if !t.cacheable(req) {
		return t.next.Do(req)
	}

	ctx := req.Context()
	key := cache.BuildKey(req.Method, req.URL.String(), req.Header, t.varyHeaders).String()

	entry, err := t.store.Get(ctx, key)
	if err == nil {
		t.logger.Debug().
			Str("endpoint", req.URL.Path).
			Str("cache_key", key).
			Msg("Cache hit")
		return entry.Response(), nil
	}
	if err != cache.ErrCacheMiss {
		// A broken store must not fail the request.
		t.logger.Warn().Err(err).Str("cache_key", key).Msg("Cache get error")
	} else {
		t.logger.Debug().
			Str("endpoint", req.URL.Path).
			Str("cache_key", key).
			Msg("Cache miss")
	}

	resp, err := t.next.Do(req)
	if err != nil || resp == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, err
	}

	entry, entryErr := cache.NewEntry(resp)
	if entryErr != nil {
		t.logger.Warn().Err(entryErr).Msg("Failed to create cache entry")
		return resp, nil
	}

	ttl := t.ttlFor(req)
	if setErr := t.store.Set(ctx, key, entry, ttl); setErr != nil {
		t.logger.Warn().Err(setErr).Str("cache_key", key).Msg("Failed to cache response")
	} else {
		t.logger.Debug().
			Str("endpoint", req.URL.Path).
			Str("cache_key", key).
			Dur("ttl", ttl).
			Msg("Cached response")
	}

	return resp, nil
}

// cacheable reports whether the request may be served from and stored in
// the cache. Only idempotent GET calls are eligible.
func (t *cacheTransport) cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	if cc, ok := req.Context().Value(cacheControlKey).(*cacheControl); ok && cc.Disabled {
		return false
	}
	return true
}

// ttlFor returns the TTL for a response, honoring per-request overrides.
func (t *cacheTransport) ttlFor(req *http.Request) time.Duration {
	if cc, ok := req.Context().Value(cacheControlKey).(*cacheControl); ok && cc.TTL > 0 {
		return cc.TTL
	}
	return t.ttl
}
