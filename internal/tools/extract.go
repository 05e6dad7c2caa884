package tools

import (
	"regexp"
	"strings"
)

// Queries arrive in French or English, so target extraction first looks
// for a preposition ("de", "sur", "of", "on") ahead of the host, then
// falls back to any bare domain, IP, or URL in the query.
var (
	ipAfterPrep     = regexp.MustCompile(`(?:de|sur|of|on)\s+(\d{1,3}(?:\.\d{1,3}){3})`)
	domainAfterPrep = regexp.MustCompile(`(?:de|sur|of|on)\s+((?:[a-z0-9][a-z0-9-]*\.)+[a-z]{2,})`)
	bareIP          = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3})`)
	bareDomain      = regexp.MustCompile(`((?:[a-z0-9][a-z0-9-]*\.)+[a-z]{2,})`)
	fullURL         = regexp.MustCompile(`(https?://\S+)`)
	portSpec        = regexp.MustCompile(`ports?\s*:?\s*([\d,-]+)`)
	cidrRange       = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,3}){3}/\d{1,2})`)
	hexHash         = regexp.MustCompile(`\b([a-f0-9]{16,128})\b`)
	termAfterPrep   = regexp.MustCompile(`(?:for|pour|about|concernant)\s+([a-z0-9._-]+(?:\s+[a-z0-9._-]+)?)\s*$`)
)

// ExtractTarget pulls a host from a natural language query. Prefers
// CIDR ranges, then IPs and domains after a preposition, then bare ones.
func ExtractTarget(query string) string {
	q := strings.ToLower(query)

	if m := cidrRange.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	if m := ipAfterPrep.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	if m := domainAfterPrep.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	if m := bareIP.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	if m := bareDomain.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	return ""
}

// ExtractURL pulls a full URL from the query, or promotes a bare domain
// to http:// when none is present.
func ExtractURL(query string) string {
	q := strings.ToLower(query)

	if m := fullURL.FindStringSubmatch(q); m != nil {
		return strings.TrimRight(m[1], ".,;")
	}
	if target := ExtractTarget(q); target != "" {
		return "http://" + target
	}
	return ""
}

// ExtractHash pulls a hex digest from the query. Length 16 up to 128
// covers everything from MySQL323 to SHA-512.
func ExtractHash(query string) string {
	q := strings.ToLower(query)

	if m := hexHash.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	return ""
}

// ExtractTerm pulls a one or two word search term following "for",
// "pour", "about", or "concernant" at the end of the query.
func ExtractTerm(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))

	if m := termAfterPrep.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	return ""
}

// ExtractPorts pulls a port specification like "ports 80,443" or
// "port: 1-1000" from the query.
func ExtractPorts(query string) string {
	q := strings.ToLower(query)

	if m := portSpec.FindStringSubmatch(q); m != nil {
		return m[1]
	}
	return ""
}

// ContainsAny reports whether the lowercased query contains any keyword.
func ContainsAny(query string, keywords []string) bool {
	q := strings.ToLower(query)
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
