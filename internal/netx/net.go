// Package netx holds small HTTP helpers shared by the transport layer.
package netx

import (
	"net"
	"net/http"
	"strings"
)

// UnknownAddr is recorded when no client address can be determined.
const UnknownAddr = "unknown"

// ClientIP returns the originating client address of r. The first entry of
// X-Forwarded-For wins, as set by the fronting proxy; otherwise the host
// part of RemoteAddr is used.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if r.RemoteAddr == "" {
		return UnknownAddr
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// BearerToken extracts the token from an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	if ok {
		return ""
	}
	return header
}
