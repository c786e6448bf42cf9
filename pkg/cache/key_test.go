package cache

import (
	"net/http"
	"testing"
)

func TestBuildKey_Deterministic(t *testing.T) {
	header := http.Header{}
	header.Set("Accept-Language", "de-DE")

	k1 := BuildKey("GET", "https://api.example.com/v3/holidays/2026/de?region=by&type=public", header, []string{"Accept-Language"})
	k2 := BuildKey("get", "https://API.example.com/v3/holidays/2026/de/?type=public&region=by", header, []string{"Accept-Language"})

	if k1.String() != k2.String() {
		t.Errorf("equivalent requests produced different keys:\n%s\n%s", k1, k2)
	}
}

func TestBuildKey_VaryHeaderParticipates(t *testing.T) {
	de := http.Header{}
	de.Set("Accept-Language", "de-DE")
	fr := http.Header{}
	fr.Set("Accept-Language", "fr-FR")

	url := "https://api.example.com/v3/holidays/2026/ch"
	kDE := BuildKey("GET", url, de, []string{"Accept-Language"})
	kFR := BuildKey("GET", url, fr, []string{"Accept-Language"})

	if kDE.String() == kFR.String() {
		t.Error("different Accept-Language values must produce different keys")
	}
}

func TestBuildKey_UndeclaredHeaderIgnored(t *testing.T) {
	h1 := http.Header{}
	h1.Set("X-Request-Id", "abc")
	h2 := http.Header{}
	h2.Set("X-Request-Id", "def")

	url := "https://api.example.com/v3/holidays/2026/de"
	k1 := BuildKey("GET", url, h1, []string{"Accept-Language"})
	k2 := BuildKey("GET", url, h2, []string{"Accept-Language"})

	if k1.String() != k2.String() {
		t.Error("headers outside the vary list must not affect the key")
	}
}

func TestKeyString_Format(t *testing.T) {
	key := Key{
		Method: "GET",
		URL:    "https://api.example.com/v3/holidays/2026/de",
		Vary:   map[string]string{"Accept-Language": "de-DE"},
	}

	want := "calgo:GET:https://api.example.com/v3/holidays/2026/de:accept-language=de-DE"
	if got := key.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "sorts query parameters",
			in:   "https://api.example.com/v3/workdays?to=2026-12-31&from=2026-01-01",
			want: "https://api.example.com/v3/workdays?from=2026-01-01&to=2026-12-31",
		},
		{
			name: "strips trailing slash",
			in:   "https://api.example.com/v3/holidays/",
			want: "https://api.example.com/v3/holidays",
		},
		{
			name: "keeps root path",
			in:   "https://api.example.com/",
			want: "https://api.example.com/",
		},
		{
			name: "lowercases host",
			in:   "https://API.Example.com/v3/holidays",
			want: "https://api.example.com/v3/holidays",
		},
		{
			name: "drops fragment",
			in:   "https://api.example.com/v3/holidays#section",
			want: "https://api.example.com/v3/holidays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
