package relay

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const loopbackKey = "127.0.0.1"

// OriginKey groups connections that should discover each other. It is the
// first X-Forwarded-For entry when trustProxy is set, the remote host
// otherwise. All loopback forms collapse to 127.0.0.1.
func OriginKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return NormalizeAddr(first)
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return NormalizeAddr(host)
}

// NormalizeAddr maps loopback and IPv4-mapped addresses onto a single form.
// Unparseable input is returned unchanged.
func NormalizeAddr(addr string) string {
	ip, err := netip.ParseAddr(strings.Trim(addr, "[]"))
	if err != nil {
		return addr
	}
	ip = ip.Unmap()
	if ip.IsLoopback() {
		return loopbackKey
	}
	return ip.WithZone("").String()
}
