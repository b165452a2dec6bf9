// Package urlcanon normalizes article URLs so that cosmetic differences
// (scheme, www prefix, tracking parameters, trailing slash) do not hide
// exact duplicates.
package urlcanon

import (
	"net/url"
	"strings"
)

// Parameters that only identify the click, not the article.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "msclkid": {}, "dclid": {}, "gclsrc": {},
	"_ga": {}, "_gl": {}, "mc_eid": {}, "mc_cid": {},
	"ref": {}, "referrer": {}, "source": {}, "campaign": {},
	"wt.mc_id": {}, "wt.z_author": {}, "ncid": {},
}

var hostPrefixVariants = map[string]struct{}{
	"www": {}, "www2": {}, "www3": {}, "m": {}, "mobile": {},
}

// Canonicalize returns the canonical form of raw. The second return is false
// when raw cannot be canonicalized; an uncanonicalizable URL never matches
// anything.
func Canonicalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "http://") && !strings.HasPrefix(lowered, "https://") {
		lowered = "https://" + lowered
	}

	parsed, err := url.Parse(lowered)
	if err != nil || parsed.Host == "" {
		return "", false
	}

	host := normalizeHost(parsed.Host)
	path := normalizePath(parsed.EscapedPath())
	query := cleanQuery(parsed.RawQuery)

	canonical := "https://" + host + path
	if query != "" {
		canonical += "?" + query
	}
	return canonical, true
}

// Match reports whether two URLs canonicalize to the same string.
func Match(a, b string) bool {
	canonicalA, okA := Canonicalize(a)
	canonicalB, okB := Canonicalize(b)
	if !okA || !okB {
		return false
	}
	return canonicalA == canonicalB
}

// Domain returns the normalized host of a URL, or "" when it cannot be
// canonicalized.
func Domain(raw string) string {
	canonical, ok := Canonicalize(raw)
	if !ok {
		return ""
	}
	parsed, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)

	if strings.HasSuffix(host, ":80") {
		host = strings.TrimSuffix(host, ":80")
	} else if strings.HasSuffix(host, ":443") {
		host = strings.TrimSuffix(host, ":443")
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 3 {
		if _, ok := hostPrefixVariants[parts[0]]; ok {
			host = strings.Join(parts[1:], ".")
		}
	}
	return host
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/"
	}
	return strings.ReplaceAll(path, "%20", " ")
}

func cleanQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable queries pass through untouched.
		return rawQuery
	}

	cleaned := url.Values{}
	for key, vals := range values {
		if isTrackingParam(key) {
			continue
		}
		for _, val := range vals {
			if val == "" {
				continue
			}
			cleaned.Add(key, val)
		}
	}
	return cleaned.Encode()
}

func isTrackingParam(key string) bool {
	lowered := strings.ToLower(key)
	if strings.HasPrefix(lowered, "utm_") {
		return true
	}
	_, ok := trackingParams[lowered]
	return ok
}
