package client

import (
	"errors"
	"strings"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want []string
	}{
		{
			name: "http error with status",
			err:  &APIError{Kind: KindHTTP, StatusCode: 503, Message: "503 Service Unavailable"},
			want: []string{"http", "503"},
		},
		{
			name: "network error with cause",
			err:  &APIError{Kind: KindNetwork, Message: "request failed", Err: errors.New("connection refused")},
			want: []string{"network", "connection refused"},
		},
		{
			name: "breaker open",
			err:  &APIError{Kind: KindBreakerOpen, Message: "service unavailable: circuit open"},
			want: []string{"breaker_open", "circuit open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want substring %q", msg, want)
				}
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &APIError{Kind: KindNetwork, Message: "request failed", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is must reach the wrapped cause")
	}

	var apiErr *APIError
	if !errors.As(error(err), &apiErr) {
		t.Error("errors.As must match APIError")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed http", &APIError{Kind: KindHTTP, StatusCode: 500}, KindHTTP},
		{"typed breaker open", &APIError{Kind: KindBreakerOpen}, KindBreakerOpen},
		{"untyped defaults to network", errors.New("dial tcp: timeout"), KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindOf(tt.err); got != tt.want {
				t.Errorf("kindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
