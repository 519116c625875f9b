// internal/app/system/ratelimit/proxy.go
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is the set of reverse proxies whose forwarding headers are
// believed. A nil or empty set believes nobody.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies reads a comma-separated list of IP addresses and CIDR
// ranges, e.g. "10.0.0.0/8, 127.0.0.1".
func ParseTrustedProxies(list string) (*TrustedProxies, error) {
	tp := &TrustedProxies{}
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q is not an IP or CIDR", item)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			item = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, n, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
		}
		tp.nets = append(tp.nets, n)
	}
	return tp, nil
}

// Len reports how many ranges are trusted.
func (tp *TrustedProxies) Len() int {
	if tp == nil {
		return 0
	}
	return len(tp.nets)
}

func (tp *TrustedProxies) trusts(ip net.IP) bool {
	for _, n := range tp.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware replaces r.RemoteAddr with the forwarded client address, but
// only when the connecting peer is a trusted proxy. X-Forwarded-For is read
// right to left and the first hop that is not itself trusted is the client;
// X-Real-IP is used when X-Forwarded-For is absent. Everyone else keeps
// their socket address, so a client cannot pick its own rate-limit key.
func (tp *TrustedProxies) Middleware(next http.Handler) http.Handler {
	if tp.Len() == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		peer := net.ParseIP(ClientIP(r))
		if peer == nil || !tp.trusts(peer) {
			next.ServeHTTP(w, r)
			return
		}

		client := tp.forwardedClient(r, peer)
		if !client.Equal(peer) {
			r2 := r.WithContext(r.Context())
			r2.RemoteAddr = client.String()
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}

func (tp *TrustedProxies) forwardedClient(r *http.Request, peer net.IP) net.IP {
	client := peer
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			client = ip
			if !tp.trusts(ip) {
				break
			}
		}
		return client
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip
	}
	return client
}
