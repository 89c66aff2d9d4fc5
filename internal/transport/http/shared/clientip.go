package shared

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address for audit trails, preferring the
// first X-Forwarded-For hop when a proxy sits in front of the server.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
