package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies decides when X-Forwarded-For can be believed. A nil
// *TrustedProxies trusts nobody and always reports the socket address.
type TrustedProxies struct {
	nets []*net.IPNet
}

// NewTrustedProxies parses a list of IP addresses and CIDR ranges.
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	p := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", e)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			e = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", e, err)
		}
		p.nets = append(p.nets, n)
	}
	return p, nil
}

func (p *TrustedProxies) trusts(addr string) bool {
	if p == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the socket address unless the peer is a trusted proxy.
// Then X-Forwarded-For is walked from the nearest hop and the first address
// not belonging to a trusted proxy wins.
func (p *TrustedProxies) ClientIP(r *http.Request) string {
	remote := remoteHost(r)
	if !p.trusts(remote) {
		return remote
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" || net.ParseIP(hop) == nil {
			break
		}
		if !p.trusts(hop) {
			return hop
		}
		remote = hop
	}
	return remote
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
