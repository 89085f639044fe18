package core

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never change the page being served.
var trackingParams = map[string]bool{
	"gclid": true, "fbclid": true, "msclkid": true, "yclid": true, "dclid": true,
	"mc_cid": true, "mc_eid": true, "igshid": true, "_hsenc": true, "_hsmi": true,
	"ref": true, "ref_src": true, "source": true, "trk": true, "spm": true,
}

func isTrackingParam(name string) bool {
	name = strings.ToLower(name)
	return strings.HasPrefix(name, "utm_") || trackingParams[name]
}

// NormalizeURL returns the deduplication key for a URL: lowercase host without "www.",
// https scheme, no fragment, no default port, no trailing slash, tracking parameters
// removed and the remaining parameters sorted. Unparseable input is returned trimmed
// and lowercased so it still deduplicates against itself.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	var kept []string
	for name, values := range u.Query() {
		if isTrackingParam(name) {
			continue
		}
		for _, v := range values {
			kept = append(kept, url.QueryEscape(name)+"="+url.QueryEscape(v))
		}
	}
	sort.Strings(kept)

	out := "https://" + host + path
	if len(kept) > 0 {
		out += "?" + strings.Join(kept, "&")
	}
	return out
}

// Host returns the lowercase host of a URL without "www." and port.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// URLPath returns the lowercase path of a URL.
func URLPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}

// TopLevelDomain returns the last label of a host, e.g. "de" for "example.de".
func TopLevelDomain(host string) string {
	host = strings.TrimSuffix(host, ".")
	if i := strings.LastIndex(host, "."); i >= 0 {
		return host[i+1:]
	}
	return ""
}

// HostMatches reports whether host equals domain or is a subdomain of it.
func HostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// PathDepth counts the non-empty path segments of a URL.
func PathDepth(raw string) int {
	depth := 0
	for _, seg := range strings.Split(URLPath(raw), "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
