// Package clientip extracts the real client IP address from HTTP requests,
// taking common proxy and CDN headers into account.
//
// Headers are checked in priority order: CF-Connecting-IP (Cloudflare),
// DO-Connecting-IP (DigitalOcean), X-Forwarded-For (leftmost entry),
// X-Real-IP, then the connection's RemoteAddr. Every candidate is validated
// with net.ParseIP and normalized; malformed values are skipped.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// headerPriority lists proxy headers from most to least trustworthy.
var headerPriority = [...]string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the client IP for r. It never panics; when no header holds
// a valid address it falls back to RemoteAddr (stripped of its port when
// possible, raw otherwise).
func GetIP(r *http.Request) string {
	for _, header := range headerPriority {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry "client, proxy1, proxy2"; the leftmost
		// entry is the original client.
		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}
		if ip := normalize(value); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := normalize(host); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// normalize validates and canonicalizes an IP candidate. It returns ""
// for invalid addresses and for the unspecified 0.0.0.0 / :: addresses,
// which indicate no usable client IP.
func normalize(candidate string) string {
	ip := net.ParseIP(strings.TrimSpace(candidate))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
