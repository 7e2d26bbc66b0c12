package utils

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalizeUrl normalises a raw url so that equivalent spellings of the same
// page collapse to one identity: https scheme, lower-cased host, no trailing
// slash ("/" for the root), query kept, fragment and userinfo dropped.
// Returns "" when the input cannot be turned into an absolute web url.
//
// CanonicalizeUrl is idempotent.
func CanonicalizeUrl(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "data:") {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return ""
	}

	path := strings.TrimRight(u.Path, "/")
	if path == "" {
		path = "/"
	}

	canonical := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     path,
		RawQuery: u.RawQuery,
	}
	return canonical.String()
}

// ExtractDomain returns the lower-cased host name of rawUrl without port, or
// "" if it cannot be parsed.
func ExtractDomain(rawUrl string) string {
	u, err := url.Parse(strings.TrimSpace(rawUrl))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// RegistrableDomain returns the eTLD+1 of host ("muenchen.de" for
// "www.muenchen.de"), or host itself when it has none (ip addresses, localhost).
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

// DomainMatches is true if host equals one of the listed domains, is a sub
// domain of one, or shares its registrable domain with one.
func DomainMatches(host string, domains []string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	registrable := RegistrableDomain(host)
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) || registrable == d || registrable == RegistrableDomain(d) {
			return true
		}
	}
	return false
}

// ResolveReference resolves a possibly relative href against base. Returns ""
// on parse failure.
func ResolveReference(base string, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}
