package normalizer

import (
	"net/url"
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)

// NormalizeURL validates a raw URL and returns its two derived forms. The
// normalized form only drops a trailing slash; the display form is
// lowercased with scheme, "www." and trailing slash removed. ok is false for
// URLs that cannot be indexed.
func NormalizeURL(raw string) (normalized, display string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", "", false
	}
	if u.Host == "" && u.Opaque == "" && u.Path == "" {
		return "", "", false
	}

	normalized = strings.TrimSuffix(raw, "/")
	return normalized, DisplayURL(raw), true
}

// DisplayURL returns the lowercase matching form of a URL
func DisplayURL(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = schemePattern.ReplaceAllString(d, "")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, "/")
}
