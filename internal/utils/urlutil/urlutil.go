package urlutil

import (
	"net/url"
	"strings"
)

// IsValid reports whether s is an absolute http(s) URL with a host.
func IsValid(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	p, err := url.Parse(s)
	if err != nil {
		return false
	}
	if p.Scheme != "http" && p.Scheme != "https" {
		return false
	}
	return p.Hostname() != ""
}

// Normalize drops the fragment and a bare trailing slash so the same page is
// never queued twice under two spellings.
func Normalize(s string) string {
	p, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	p.Fragment = ""
	if p.Path == "/" {
		p.Path = ""
	}
	return p.String()
}

// Domain returns the hostname of u, or "" when u does not parse.
func Domain(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return p.Hostname()
}

// SameSite reports whether two hostnames belong to the same site, ignoring a
// leading www.
func SameSite(a, b string) bool {
	if a == b {
		return true
	}
	return strings.TrimPrefix(a, "www.") == strings.TrimPrefix(b, "www.")
}

// UpgradeScheme rewrites an http URL to https. Plain-http facility sites
// frequently redirect anyway and the https attempt avoids one round trip.
func UpgradeScheme(s string) string {
	if strings.HasPrefix(s, "http://") {
		return "https://" + strings.TrimPrefix(s, "http://")
	}
	return s
}
