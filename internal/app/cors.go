package app

import (
	"net/url"
	"strings"
)

// originHost returns the "host[:port]" portion of an origin URL.
func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

func splitHostPort(host string) (hostname, port string) {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i], host[i+1:]
	}
	return host, ""
}

// originMatches reports whether host matches the allow-list pattern.
// "*.domain" matches any subdomain of domain on any port, "name:*" matches
// name on any port (or none), and anything else is an exact host match.
func originMatches(pattern, host string) bool {
	hostname, _ := splitHostPort(host)
	switch {
	case strings.HasSuffix(pattern, ":*"):
		return hostname == pattern[:len(pattern)-2]
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(hostname, pattern[1:])
	default:
		return pattern == host
	}
}
