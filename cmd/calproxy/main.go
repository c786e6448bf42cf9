// Command calproxy exposes the resilient calendar API client as a small
// HTTP proxy with health and metrics endpoints.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/calgo-project/calgo/pkg/cache"
	"github.com/calgo-project/calgo/pkg/client"
	"github.com/calgo-project/calgo/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Configuration from environment
	upstreamURL := getEnv("CALAPI_URL", "https://api.calendarific.example.com")
	redisURL := getEnv("REDIS_URL", "")
	port := getEnv("PORT", "8080")
	logLevel := getEnv("LOG_LEVEL", "info")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
	})

	cfg := client.DefaultConfig(upstreamURL)

	// With Redis configured the cache is shared across instances;
	// otherwise fall back to the process-local store.
	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis")
		cfg.Cache = cache.NewRedis(redisClient, "calproxy:")
	} else {
		cfg.Cache = cache.NewMemory()
	}
	cfg.Logger = &logger

	calClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create calendar client")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/", proxyHandler(calClient))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("upstream", upstreamURL).
		Msg("Starting calendar proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// proxyHandler forwards /api/* requests to the upstream through the
// resilient client, mapping breaker-open rejections to 503.
func proxyHandler(calClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Example: /api/v3/holidays/2026/de -> /v3/holidays/2026/de
		endpoint := r.URL.Path[len("/api"):]
		if r.URL.RawQuery != "" {
			endpoint += "?" + r.URL.RawQuery
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		headers := map[string]string{}
		if lang := r.Header.Get("Accept-Language"); lang != "" {
			headers["Accept-Language"] = lang
		}

		resp, err := calClient.Get(ctx, endpoint, headers)
		if err != nil {
			if client.IsBreakerOpen(err) {
				http.Error(w, "upstream unavailable: circuit open", http.StatusServiceUnavailable)
				return
			}
			if resp == nil {
				http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
				return
			}
			// Non-2xx upstream status: pass it through below.
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			// Client went away mid-body; nothing useful to do.
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
