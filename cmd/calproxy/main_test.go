package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calgo-project/calgo/internal/testutil"
	"github.com/calgo-project/calgo/pkg/breaker"
	"github.com/calgo-project/calgo/pkg/cache"
	"github.com/calgo-project/calgo/pkg/client"
)

func newProxyClient(t *testing.T, upstream string) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(upstream)
	cfg.Cache = cache.NewMemory()
	cfg.RetryDelay = time.Millisecond

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", w.Body.String())
	}
}

func TestProxyHandler_PassesThroughUpstreamResponse(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	mock.SetResponse("/v3/holidays/2026/de", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"date":"2026-01-01","name":"Neujahr"}]`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	handler := proxyHandler(newProxyClient(t, mock.URL()))

	req := httptest.NewRequest("GET", "/api/v3/holidays/2026/de", nil)
	req.Header.Set("Accept-Language", "de-DE")
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Neujahr") {
		t.Errorf("body = %q, want holiday payload", w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := mock.LastRequestHeader().Get("Accept-Language"); got != "de-DE" {
		t.Errorf("upstream Accept-Language = %q, want de-DE", got)
	}
}

func TestProxyHandler_BreakerOpenMapsTo503(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	const path = "/v3/holidays/2026/de"
	mock.SetResponse(path, testutil.MockResponse{StatusCode: http.StatusInternalServerError})

	upstream := newProxyClient(t, mock.URL())
	handler := proxyHandler(upstream)

	// Trip the circuit.
	for upstream.Breaker().State() != breaker.StateOpen {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/api"+path, nil))
	}

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/api"+path, nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 for breaker-open rejection", w.Code)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CALPROXY_TEST_KEY", "value")

	if got := getEnv("CALPROXY_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("getEnv = %q, want value", got)
	}
	if got := getEnv("CALPROXY_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
}
