package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxEntryBody bounds how much of a response body is cached.
const maxEntryBody = 10 * 1024 * 1024

// Entry represents a cached upstream response.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// Header holds the response headers.
	Header http.Header `json:"header"`

	// Body is the response body.
	Body []byte `json:"body"`

	// StoredAt is when the response was cached.
	StoredAt time.Time `json:"stored_at"`
}

// NewEntry converts an HTTP response into a cache entry. The response body
// is consumed and restored so the caller can still read it.
func NewEntry(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEntryBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for the caller.
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now(),
	}, nil
}

// Response materializes the entry as an HTTP response. Each call returns a
// response with an independent body reader.
func (e *Entry) Response() *http.Response {
	return &http.Response{
		Status:        http.StatusText(e.StatusCode),
		StatusCode:    e.StatusCode,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
	}
}
