package client

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for the retry layer.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	// Zero disables retrying.
	MaxRetries int

	// BaseDelay is the delay before the first retry. The initial attempt
	// is never delayed.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// Exponential selects exponential backoff (BaseDelay doubled per
	// attempt). When false, every retry waits BaseDelay.
	Exponential bool

	// Jitter is the randomization factor applied to each delay (0 to 1).
	Jitter float64

	// RetryStatusCodes is the set of HTTP status codes considered
	// transient and worth retrying.
	RetryStatusCodes map[int]bool
}

// DefaultRetryStatusCodes returns the default retryable status code set.
func DefaultRetryStatusCodes() map[int]bool {
	return map[int]bool{
		http.StatusRequestTimeout:      true, // 408
		http.StatusTooManyRequests:     true, // 429
		http.StatusInternalServerError: true, // 500
		http.StatusBadGateway:          true, // 502
		http.StatusServiceUnavailable:  true, // 503
		http.StatusGatewayTimeout:      true, // 504
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       3,
		BaseDelay:        500 * time.Millisecond,
		MaxDelay:         30 * time.Second,
		Exponential:      true,
		Jitter:           0.2,
		RetryStatusCodes: DefaultRetryStatusCodes(),
	}
}

// retryTransport re-issues failed calls a bounded number of times with
// increasing delay. Non-retryable failures, including breaker-open
// rejections, propagate immediately without consuming the retry budget.
type retryTransport struct {
	next   Doer
	cfg    RetryConfig
	logger zerolog.Logger
	sleep  func(*http.Request, time.Duration) error
}

func newRetryTransport(next Doer, cfg RetryConfig, logger zerolog.Logger) *retryTransport {
	t := &retryTransport{
		next:   next,
		cfg:    cfg,
		logger: logger,
	}
	t.sleep = t.waitBackoff
	return t
}

func (t *retryTransport) Do(req *http.Request) (*http.Response, error) {
	// Retrying disabled: single attempt, immediate propagation.
	if t.cfg.MaxRetries <= 0 {
		return t.next.Do(req)
	}

	var lastResp *http.Response
	var lastErr error

	attempts := t.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// Rewind the body for re-issued requests.
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return lastResp, fmt.Errorf("rewind request body: %w", err)
				}
				req.Body = body
			}

			delay := t.backoffDelay(attempt)
			kind := kindOf(lastErr)
			retriesTotal.WithLabelValues(string(kind)).Inc()
			retryBackoffSeconds.WithLabelValues(string(kind)).Observe(delay.Seconds())

			t.logger.Debug().
				Str("endpoint", req.URL.Path).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Str("kind", string(kind)).
				Msg("Retrying request after backoff")

			if err := t.sleep(req, delay); err != nil {
				return lastResp, err
			}
		}

		resp, err := t.next.Do(req)
		if err == nil {
			if attempt > 1 {
				t.logger.Info().
					Str("endpoint", req.URL.Path).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		if !t.retryable(err) {
			return resp, err
		}

		lastErr = err
		if attempt < attempts {
			// This response is abandoned for a retry; release it.
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
		} else {
			lastResp = resp
		}
	}

	retryExhaustedTotal.WithLabelValues(string(kindOf(lastErr))).Inc()
	t.logger.Warn().
		Str("endpoint", req.URL.Path).
		Int("attempts", attempts).
		Msg("Retry attempts exhausted")

	return lastResp, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

// retryable reports whether a failure is worth re-attempting. Breaker-open
// rejections never are; retrying against an open circuit is wasted work.
func (t *retryTransport) retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindBreakerOpen:
			return false
		case KindNetwork:
			return true
		case KindHTTP:
			return t.cfg.RetryStatusCodes[apiErr.StatusCode]
		default:
			return false
		}
	}

	// Untyped errors are transport-level failures.
	return true
}

// backoffDelay computes the delay before the given attempt (attempt >= 2).
func (t *retryTransport) backoffDelay(attempt int) time.Duration {
	delay := t.cfg.BaseDelay
	if t.cfg.Exponential {
		for i := 2; i < attempt; i++ {
			delay *= 2
			if t.cfg.MaxDelay > 0 && delay >= t.cfg.MaxDelay {
				delay = t.cfg.MaxDelay
				break
			}
		}
	}
	if t.cfg.MaxDelay > 0 && delay > t.cfg.MaxDelay {
		delay = t.cfg.MaxDelay
	}

	if t.cfg.Jitter > 0 {
		// Randomize within ±jitter to avoid thundering herd.
		f := 1 - t.cfg.Jitter + rand.Float64()*2*t.cfg.Jitter
		delay = time.Duration(float64(delay) * f)
	}

	return delay
}

// waitBackoff blocks for the given delay, honoring request cancellation.
func (t *retryTransport) waitBackoff(req *http.Request, delay time.Duration) error {
	select {
	case <-req.Context().Done():
		t.logger.Warn().
			Str("endpoint", req.URL.Path).
			Msg("Context cancelled during retry backoff")
		return fmt.Errorf("%w: %v", ErrContextCancelled, req.Context().Err())
	case <-time.After(delay):
		return nil
	}
}
