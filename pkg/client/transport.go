package client

import "net/http"

// Doer performs one HTTP round trip. *http.Client is the production
// implementation; every resilience layer both consumes and implements it,
// so layers compose by explicit wrapping.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(*http.Request) (*http.Response, error)

// Do implements Doer.
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
