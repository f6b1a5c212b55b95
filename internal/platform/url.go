package platform

import (
	"net/url"
	"strings"
)

// ValidateURL normalizes a platform instance URL supplied by a client.
// It requires an http(s) scheme and a host, and strips any trailing slash
// so stored URLs compare equal. Returns ok=false for malformed input.
func ValidateURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), true
}
