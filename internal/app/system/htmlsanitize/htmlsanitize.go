// Package htmlsanitize cleans strings that originate from third-party book
// search results before they are stored.
package htmlsanitize

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips every tag and returns plain, trimmed text. Entity-encoded
// markup is decoded and stripped again until nothing changes, so "&lt;b&gt;"
// cannot come back as a tag however many times it was encoded.
func Text(s string) string {
	out := s
	// Each decoding layer costs one pass; len(s)+1 bounds the layers.
	for i := 0; i <= len(s); i++ {
		next := html.UnescapeString(strict.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(strict.Sanitize(out))
}

// URL returns s when it is an absolute http(s) URL and "" otherwise.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
