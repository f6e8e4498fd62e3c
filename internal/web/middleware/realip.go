package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP rewrites RemoteAddr to the client address reported by a
// reverse proxy. Headers are honoured only when the connection comes from
// one of trustedCIDRs; anyone else keeps their socket address.
//
// The per-IP limits on the whole API and the stricter one on /api/process
// key on the rewritten address, so a direct client cannot pick its own
// bucket by sending X-Forwarded-For.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	proxies := parseProxies(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isTrusted(extractIP(r.RemoteAddr), proxies) {
				if ip := forwardedClient(r.Header); ip != nil {
					r.RemoteAddr = ip.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseProxies accepts CIDRs and bare addresses. Bad entries are logged
// and skipped so one typo in TRUSTED_PROXIES does not stop the server.
func parseProxies(entries []string) []*net.IPNet {
	var proxies []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			proxies = append(proxies, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			slog.Warn("realip: skipping invalid trusted proxy", "entry", entry)
			continue
		}
		bits := 128
		if ip.To4() != nil {
			ip, bits = ip.To4(), 32
		}
		proxies = append(proxies, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return proxies
}

// forwardedClient prefers X-Real-IP and otherwise takes the first hop of
// X-Forwarded-For. Values that do not parse as an IP are ignored.
func forwardedClient(h http.Header) net.IP {
	if rip := strings.TrimSpace(h.Get("X-Real-IP")); rip != "" {
		return net.ParseIP(rip)
	}
	xff := h.Get("X-Forwarded-For")
	if xff == "" {
		return nil
	}
	first, _, _ := strings.Cut(xff, ",")
	return net.ParseIP(strings.TrimSpace(first))
}

// ClientIP returns the client address without its port. Run TrustedRealIP
// first so proxied requests report the original client.
func ClientIP(r *http.Request) string {
	if ip := extractIP(r.RemoteAddr); ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}

func extractIP(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func isTrusted(ip net.IP, proxies []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, network := range proxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
