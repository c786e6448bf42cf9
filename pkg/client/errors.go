package client

import (
	"errors"
	"fmt"

	"github.com/calgo-project/calgo/pkg/breaker"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// Kind classifies a request failure.
type Kind string

const (
	// KindNetwork is a connection or transport-level failure.
	KindNetwork Kind = "network"

	// KindHTTP is a non-2xx response from the upstream.
	KindHTTP Kind = "http"

	// KindBreakerOpen is a rejection raised without contacting the
	// upstream because the circuit breaker is open.
	KindBreakerOpen Kind = "breaker_open"
)

// APIError is a typed failure carrying the failure kind, an optional HTTP
// status code and the underlying cause.
type APIError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		if e.Err != nil {
			return fmt.Sprintf("calendar api %s error (status %d): %s: %v",
				e.Kind, e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("calendar api %s error (status %d): %s",
			e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("calendar api %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("calendar api %s error: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsBreakerOpen reports whether err is a breaker-open rejection, i.e. the
// client refused to contact the upstream rather than the upstream failing.
func IsBreakerOpen(err error) bool {
	return breaker.IsOpen(err)
}

// kindOf extracts the failure kind from err, defaulting to network for
// untyped transport failures.
func kindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}
