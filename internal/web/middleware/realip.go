package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/projview/internal/core"
)

// ProxyList is the set of networks whose X-Real-IP / X-Forwarded-For headers
// are believed.
type ProxyList []*net.IPNet

// ParseProxyList parses CIDRs and bare IPs. Invalid entries are logged and
// skipped.
func ParseProxyList(entries []string) ProxyList {
	var out ProxyList
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			out = append(out, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip, bits = ip.To4(), 32
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out
}

// Trusts reports whether ip belongs to a trusted proxy.
func (p ProxyList) Trusts(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range p {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address of r. Forwarding headers count only
// when the connection comes from a trusted proxy and they hold a valid IP.
func (p ProxyList) ClientIP(r *http.Request) string {
	remote := hostOnly(r.RemoteAddr)
	if !p.Trusts(net.ParseIP(remote)) {
		return remote
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		if ip := net.ParseIP(rip); ip != nil {
			return ip.String()
		}
		return remote
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return remote
}

// TrustedRealIP rewrites r.RemoteAddr to the client IP and records it, with
// the user agent, in the request context for the load audit.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	proxies := ParseProxyList(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := proxies.ClientIP(r)
			r.RemoteAddr = ip

			ctx := core.ContextWithIPAddress(r.Context(), ip)
			ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// hostOnly strips the port from a host:port address.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
