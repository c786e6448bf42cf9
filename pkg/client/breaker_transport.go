package client

import (
	"net/http"

	"github.com/calgo-project/calgo/pkg/breaker"
)

// breakerTransport wraps the raw transport with circuit breaker protection.
// Any transport failure or non-2xx response feeds the breaker's failure
// bookkeeping; an open circuit rejects the call before the transport is
// touched.
type breakerTransport struct {
	next Doer
	cb   *breaker.Breaker
}

func (t *breakerTransport) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var callErr error

	err := t.cb.Call(func() error {
		var reqErr error
		resp, reqErr = t.next.Do(req)

		if reqErr != nil {
			callErr = &APIError{
				Kind:    KindNetwork,
				Message: "request failed",
				Err:     reqErr,
			}
			return callErr
		}

		if resp.StatusCode >= 400 {
			// The response is still returned to the caller; the error
			// carries the classification for the retry layer.
			callErr = &APIError{
				Kind:       KindHTTP,
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}
			return callErr
		}

		callErr = nil
		return nil
	})

	if breaker.IsOpen(err) {
		errorsTotal.WithLabelValues(string(KindBreakerOpen)).Inc()
		return nil, &APIError{
			Kind:    KindBreakerOpen,
			Message: "service unavailable: circuit open",
			Err:     err,
		}
	}

	if err != nil {
		errorsTotal.WithLabelValues(string(kindOf(err))).Inc()
		return resp, err
	}

	return resp, nil
}
