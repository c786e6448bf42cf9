package client

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// observeTransport is the outermost layer. It records structured events
// and Prometheus metrics for every call outcome without altering the
// semantic content of responses or failures.
type observeTransport struct {
	next   Doer
	logger zerolog.Logger
}

func (t *observeTransport) Do(req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path
	start := time.Now()

	t.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	resp, err := t.next.Do(req)

	duration := time.Since(start)
	requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	if err != nil {
		// A breaker-open rejection means sustained upstream unavailability,
		// so it logs at a higher severity than an ordinary failure.
		event := t.logger.Warn()
		status := "error"
		if IsBreakerOpen(err) {
			event = t.logger.Error()
			status = "breaker_open"
		} else if resp != nil {
			status = fmt.Sprintf("%d", resp.StatusCode)
		}
		requestsTotal.WithLabelValues(endpoint, status).Inc()

		event.Err(err).
			Str("endpoint", endpoint).
			Str("method", req.Method).
			Dur("duration", duration).
			Str("kind", string(kindOf(err))).
			Msg("Request failed")

		return resp, err
	}

	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	t.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("Request completed")

	return resp, nil
}
