package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyTrust decides whose forwarding headers are believed.
type proxyTrust struct {
	prefixes []netip.Prefix
}

// trusts reports whether the direct peer at remoteAddr is a configured proxy.
func (p proxyTrust) trusts(remoteAddr string) bool {
	if len(p.prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(extractIP(remoteAddr))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the caller's address. Proxy headers are honoured only
// when the socket peer is trusted, so callers cannot pick their own key.
func (p proxyTrust) clientIP(r *http.Request) string {
	if !p.trusts(r.RemoteAddr) {
		return extractIP(r.RemoteAddr)
	}

	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}

// extractIP strips the port from an ip:port address.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
