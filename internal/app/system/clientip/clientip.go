// Package clientip resolves the address a request came from.
//
// Proxy headers are only honored when the direct peer is a configured
// trusted proxy; otherwise any client could pick its own address and
// dodge per-IP limits.
package clientip

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Trusted is a set of proxy networks whose forwarding headers are believed.
// The zero value trusts nobody.
type Trusted []*net.IPNet

// ParseTrusted parses a comma-separated list of CIDRs or bare IPs.
func ParseTrusted(list string) (Trusted, error) {
	var out Trusted
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "/") {
			ip := net.ParseIP(part)
			if ip == nil {
				return nil, fmt.Errorf("invalid proxy address %q", part)
			}
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(part)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy network %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Contains reports whether ip (no port) is a trusted proxy.
func (t Trusted) Contains(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range t {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// FromRequest returns the host part of r.RemoteAddr.
func FromRequest(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Resolve returns the client address for r. When the peer is trusted, the
// right-most X-Forwarded-For hop that is not itself a trusted proxy wins,
// then X-Real-IP.
func (t Trusted) Resolve(r *http.Request) string {
	peer := FromRequest(r)
	if !t.Contains(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && net.ParseIP(hop) != nil && !t.Contains(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

// Middleware rewrites r.RemoteAddr to the resolved client address so
// FromRequest is correct everywhere downstream.
func (t Trusted) Middleware(next http.Handler) http.Handler {
	if len(t) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := t.Resolve(r); ip != FromRequest(r) {
			r2 := r.Clone(r.Context())
			r2.RemoteAddr = net.JoinHostPort(ip, "0")
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}
