// Package normalize canonicalizes URL-like strings into the stable keys used
// for membership tests and allow-list matching.
//
// URL is total: input that cannot be parsed degrades to a lower-cased,
// trimmed passthrough instead of an error.
package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/haukened/phishscreen/internal/screen/common/utils"
	"github.com/haukened/phishscreen/internal/screen/domain"
)

// URL returns the canonical host+path form of raw.
//
// Steps:
//   - default the scheme to http:// when no http(s) scheme is present
//   - canonicalize the host (lower case, no trailing dot, punycode, no www.)
//   - drop port, userinfo, query and fragment
//   - strip trailing slashes from the escaped path
//
// The result is stable under repeated application.
func URL(raw string) domain.CanonicalURL {
	s := strings.TrimSpace(raw)
	if !hasHTTPScheme(s) {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return fallback(raw)
	}
	host := canonicalHost(u.Hostname())
	path := strings.TrimRight(u.EscapedPath(), "/")
	return domain.CanonicalURL(strings.ToLower(host + path))
}

// AllowList normalizes each non-blank entry and returns the resulting set.
func AllowList(entries []string) domain.AllowList {
	keys := make([]domain.CanonicalURL, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		keys = append(keys, URL(e))
	}
	return domain.NewAllowList(keys...)
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func fallback(raw string) domain.CanonicalURL {
	return domain.CanonicalURL(strings.ToLower(strings.TrimSpace(raw)))
}

// canonicalHost lower-cases and strips the host. IPv6 literals are
// re-bracketed so the output parses back to the same host.
func canonicalHost(h string) string {
	h = utils.CanonicalDNSName(h)
	if strings.Contains(h, ":") {
		return "[" + h + "]"
	}
	if ascii, err := idna.ToASCII(h); err == nil {
		h = strings.ToLower(ascii)
	}
	return utils.StripWWW(h)
}
