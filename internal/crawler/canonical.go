package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// canonicalFlags normalize only what cannot change the addressed resource.
// Trailing slashes and query order are kept because servers may treat them
// as distinct pages.
const canonicalFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveEmptyQuerySeparator |
	purell.FlagRemoveFragment

// Canonicalize resolves href against base and strips the fragment.
// It returns false for hrefs that do not parse or that resolve to something
// other than an http(s) URL with a host, such as mailto: or javascript: links.
func Canonicalize(base *url.URL, href string) (string, bool) {
	if base == nil {
		return "", false
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(ref)
	switch strings.ToLower(resolved.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}

	return purell.NormalizeURL(resolved, canonicalFlags), true
}
