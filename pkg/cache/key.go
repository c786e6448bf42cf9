package cache

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cacheable request: method, normalized URL, and the
// declared variant headers that affect response content.
type Key struct {
	// Method is the HTTP method (GET for cacheable requests).
	Method string

	// URL is the normalized request URL.
	URL string

	// Vary maps canonical header names to the request values that
	// participate in the key (e.g. Accept-Language).
	Vary map[string]string
}

// String generates a deterministic cache key string.
// Format: calgo:METHOD:url:header=value:...
//
// Example:
//
//	calgo:GET:https://api.example.com/v3/holidays/2026/de:accept-language=de-DE
func (k Key) String() string {
	parts := []string{"calgo", k.Method, k.URL}

	// Add vary headers (sorted for determinism).
	if len(k.Vary) > 0 {
		names := make([]string, 0, len(k.Vary))
		for name := range k.Vary {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, strings.ToLower(name)+"="+k.Vary[name])
		}
	}

	return strings.Join(parts, ":")
}

// BuildKey derives the cache key for a request. The URL is normalized
// (lowercased scheme and host, sorted query parameters, no trailing slash)
// and only the headers named in vary participate, so equivalent requests
// map to the same key.
func BuildKey(method, rawURL string, header http.Header, vary []string) Key {
	key := Key{
		Method: strings.ToUpper(method),
		URL:    NormalizeURL(rawURL),
	}

	for _, name := range vary {
		if value := header.Get(name); value != "" {
			if key.Vary == nil {
				key.Vary = make(map[string]string, len(vary))
			}
			key.Vary[http.CanonicalHeaderKey(name)] = value
		}
	}

	return key
}

// NormalizeURL canonicalizes a URL for key derivation. Unparseable URLs are
// returned as-is so they still produce a stable (if opaque) key.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	// Encode sorts query parameters by key.
	u.RawQuery = u.Query().Encode()

	return u.String()
}
