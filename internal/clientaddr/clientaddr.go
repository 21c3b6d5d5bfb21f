// Package clientaddr derives canonical IPv4/IPv6 client addresses from proxy
// headers and connection metadata. It is a pure function over supplied data:
// no DNS lookups, no trust decisions beyond header collection order.
package clientaddr

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders are the inbound headers that may carry a client address.
// Each may hold a comma-separated chain.
var proxyHeaders = []string{
	"X-Forwarded-For",
	"X-Real-Ip",
	"Cf-Connecting-Ip",
	"True-Client-Ip",
	"X-Client-Ip",
}

const mappedV4Prefix = "::ffff:"

// Info holds the per-request resolved client addresses.
type Info struct {
	IPv4 string
	IPv6 string
}

// Display renders the resolved addresses as a short human string,
// one line per family, or "unknown" when nothing resolved.
func (i Info) Display() string {
	var lines []string
	if i.IPv6 != "" {
		lines = append(lines, "IPv6: "+i.IPv6)
	}
	if i.IPv4 != "" {
		lines = append(lines, "IPv4: "+i.IPv4)
	}
	if len(lines) == 0 {
		return "unknown"
	}
	return strings.Join(lines, "\n")
}

// Resolve collects address candidates from the proxy headers, the
// framework-resolved address, and the raw connection remote address, then
// fills the IPv4/IPv6 slots first-seen-wins. A candidate with the
// IPv4-mapped-IPv6 prefix contributes its embedded IPv4. When only one
// loopback family resolved the other is defaulted to its loopback form.
func Resolve(h http.Header, remoteAddr, resolvedAddr string) Info {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(raw string) {
		s := strings.TrimSpace(raw)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		candidates = append(candidates, s)
	}

	for _, name := range proxyHeaders {
		for _, val := range h.Values(name) {
			for _, part := range strings.Split(val, ",") {
				add(part)
			}
		}
	}
	add(resolvedAddr)
	add(stripPort(remoteAddr))

	var info Info
	for _, c := range candidates {
		switch {
		case strings.HasPrefix(c, mappedV4Prefix):
			if info.IPv4 == "" {
				info.IPv4 = strings.TrimPrefix(c, mappedV4Prefix)
			}
		case strings.Contains(c, ":"):
			if info.IPv6 == "" {
				info.IPv6 = c
			}
		case strings.Contains(c, "."):
			if info.IPv4 == "" {
				info.IPv4 = c
			}
		}
	}

	// loopback defaulting: a local connection on one family implies the other
	if info.IPv6 == "::1" && info.IPv4 == "" {
		info.IPv4 = "127.0.0.1"
	}
	if info.IPv4 == "127.0.0.1" && info.IPv6 == "" {
		info.IPv6 = "::1"
	}

	return info
}

// FromRequest resolves addresses for an inbound request. RemoteAddr carries
// host:port, so the port is stripped before classification.
func FromRequest(r *http.Request) Info {
	return Resolve(r.Header, r.RemoteAddr, stripPort(r.RemoteAddr))
}

func stripPort(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
