package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// NormalizeURL reduces a storefront URL to its identity form:
// lowercased scheme and host, path kept, query and fragment dropped,
// trailing slash stripped. All dedup comparisons run on this form.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("normalize url: empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("normalize url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("normalize url %q: unsupported scheme", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("normalize url %q: missing host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String(), nil
}

var appIDRe = regexp.MustCompile(`/app/(\d+)`)

// SourceIDFromURL pulls the site-native app id out of a detail URL,
// e.g. https://store.example.com/app/12345/Some_Game -> "12345".
// Returns "" when the URL carries no app id.
func SourceIDFromURL(raw string) string {
	m := appIDRe.FindStringSubmatch(raw)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}
