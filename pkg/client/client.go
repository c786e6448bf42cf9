// Package client provides the resilient calendar API client: a plain HTTP
// transport wrapped with circuit breaking, retry with backoff, response
// caching and observability, composed in a fixed order.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calgo-project/calgo/pkg/breaker"
	"github.com/calgo-project/calgo/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the flat configuration the factory composes a client from.
type Config struct {
	// BaseURL is prepended to request paths (e.g. "https://api.example.com").
	BaseURL string

	// Transport performs the raw network call. Defaults to an
	// *http.Client with a 30s timeout. Supplying an already-composed
	// *Client here is a misconfiguration the factory guards against.
	Transport Doer

	// Cache is the response cache store. Nil disables caching.
	Cache cache.Store

	// CacheTTL is the default freshness window for cached responses.
	CacheTTL time.Duration

	// VaryHeaders are the request headers that participate in the cache
	// key. Defaults to Accept-Language.
	VaryHeaders []string

	// Retry configuration.
	MaxRetries         int
	RetryDelay         time.Duration
	MaxRetryDelay      time.Duration
	ExponentialBackoff bool
	RetryStatusCodes   []int

	// Circuit breaker configuration.
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int

	// Clock is the breaker's time source. Defaults to the wall clock;
	// tests supply a controllable clock.
	Clock breaker.Clock

	// Logger for structured events. Nil uses the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration for the given
// upstream base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:            baseURL,
		CacheTTL:           15 * time.Minute,
		VaryHeaders:        []string{"Accept-Language"},
		MaxRetries:         3,
		RetryDelay:         500 * time.Millisecond,
		MaxRetryDelay:      30 * time.Second,
		ExponentialBackoff: true,
		RetryStatusCodes:   []int{408, 429, 500, 502, 503, 504},
		FailureThreshold:   5,
		RecoveryTimeout:    60 * time.Second,
		SuccessThreshold:   2,
	}
}

// Client is the composed calendar API client. The call path threads
// observability -> caching -> retry -> circuit breaker -> transport; each
// layer may short-circuit, retry or annotate, but a successful response
// passes through unmodified. Safe for concurrent use.
type Client struct {
	transport   Doer
	cb          *breaker.Breaker
	store       cache.Store
	varyHeaders []string
	baseURL     string
	logger      zerolog.Logger
}

// New composes a client from cfg. The decorator order is fixed; see the
// package documentation.
//
// If cfg.Transport is already a composed *Client, it is returned as-is. In
// that case supplying raw cache or logger configuration alongside it is a
// likely misconfiguration: a warning is logged and the extra configuration
// is ignored rather than stacking duplicate layers.
func New(cfg Config) (*Client, error) {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("component", "calgo-client").Logger()

	if pre, ok := cfg.Transport.(*Client); ok {
		if cfg.Cache != nil || cfg.Logger != nil {
			logger.Warn().
				Msg("Transport is already a composed client; ignoring cache/logger configuration instead of double-decorating")
		}
		return pre, nil
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Cache != nil && cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive when a cache is configured")
	}

	base := cfg.Transport
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}

	breakerOpts := []breaker.Option{breaker.WithLogger(logger)}
	if cfg.Clock != nil {
		breakerOpts = append(breakerOpts, breaker.WithClock(cfg.Clock))
	}
	cb := breaker.New("upstream", breaker.Config{
		FailureThreshold: cfg.FailureThreshold,
		RecoveryTimeout:  cfg.RecoveryTimeout,
		SuccessThreshold: cfg.SuccessThreshold,
	}, breakerOpts...)

	retryCfg := RetryConfig{
		MaxRetries:       cfg.MaxRetries,
		BaseDelay:        cfg.RetryDelay,
		MaxDelay:         cfg.MaxRetryDelay,
		Exponential:      cfg.ExponentialBackoff,
		Jitter:           0.2,
		RetryStatusCodes: DefaultRetryStatusCodes(),
	}
	if retryCfg.BaseDelay <= 0 {
		retryCfg.BaseDelay = 500 * time.Millisecond
	}
	if len(cfg.RetryStatusCodes) > 0 {
		retryCfg.RetryStatusCodes = make(map[int]bool, len(cfg.RetryStatusCodes))
		for _, code := range cfg.RetryStatusCodes {
			retryCfg.RetryStatusCodes[code] = true
		}
	}

	varyHeaders := cfg.VaryHeaders
	if varyHeaders == nil {
		varyHeaders = []string{"Accept-Language"}
	}

	// Fixed order: transport -> breaker -> retry -> cache -> observe.
	chain := Doer(&breakerTransport{next: base, cb: cb})
	chain = newRetryTransport(chain, retryCfg, logger)
	if cfg.Cache != nil {
		chain = &cacheTransport{
			next:        chain,
			store:       cfg.Cache,
			ttl:         cfg.CacheTTL,
			varyHeaders: varyHeaders,
			logger:      logger,
		}
	}
	chain = &observeTransport{next: chain, logger: logger}

	return &Client{
		transport:   chain,
		cb:          cb,
		store:       cfg.Cache,
		varyHeaders: varyHeaders,
		baseURL:     cfg.BaseURL,
		logger:      logger,
	}, nil
}

// Do executes a prepared request through the composed layer chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.transport.Do(req)
}

// Get performs a GET request against the given API path. Headers are
// applied to the request and, when named in the configured vary headers,
// participate in the cache key.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	applyHeaders(req, headers)
	return c.Do(req)
}

// Post performs a POST request with a JSON-encoded body. Mutating calls
// always bypass the cache.
func (c *Client) Post(ctx context.Context, path string, body map[string]any, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	applyHeaders(req, headers)
	return c.Do(req)
}

// GetJSON performs a GET request and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, headers map[string]string, v any) error {
	resp, err := c.Get(ctx, path, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// InvalidateCache removes the cached entry for the given request identity.
func (c *Client) InvalidateCache(ctx context.Context, method, path string, headers map[string]string) error {
	if c.store == nil {
		return nil
	}
	header := http.Header{}
	for name, value := range headers {
		header.Set(name, value)
	}
	key := cache.BuildKey(method, c.baseURL+path, header, c.varyHeaders).String()
	return c.store.Delete(ctx, key)
}

// ClearCache removes all cached entries.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx)
}

// Breaker exposes the circuit breaker for introspection and administrative
// reset.
func (c *Client) Breaker() *breaker.Breaker {
	return c.cb
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for name, value := range headers {
		req.Header.Set(name, value)
	}
}
