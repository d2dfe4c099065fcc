package utils

import (
	"net"
	"net/netip"
	"strings"
)

var (
	cgnatPrefix = netip.MustParsePrefix("100.64.0.0/10")

	// Interface name fragments used by VPN and tunnel adapters.
	tunnelNames = []string{"tun", "tap", "wg", "ppp", "warp"}
)

// ShouldForceRelay checks if the system is likely behind a restrictive VPN or
// CGNAT, where direct connections rarely work and TURN should be used.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isTunnelName(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if prefix, err := netip.ParsePrefix(addr.String()); err == nil && IsCGNAT(prefix.Addr()) {
				return true
			}
		}
	}
	return false
}

func isTunnelName(name string) bool {
	name = strings.ToLower(name)
	for _, frag := range tunnelNames {
		if strings.Contains(name, frag) {
			return true
		}
	}
	return false
}

// IsCGNAT reports whether addr is in the shared address space 100.64.0.0/10
// used by carrier NAT, Tailscale and WARP.
func IsCGNAT(addr netip.Addr) bool {
	return cgnatPrefix.Contains(addr.Unmap())
}
