package pasv

import (
	"fmt"
	"net"
)

// HostIPv4 picks the IPv4 address advertised in a 227 reply.
//
// advertised, when set, wins; it may be an IPv4 literal or a hostname that
// resolves to one. Otherwise the local address of the control connection is
// used, unwrapping IPv4-mapped IPv6. Anything else falls back to 127.0.0.1.
func HostIPv4(advertised string, local net.Addr) net.IP {
	if advertised != "" {
		if ip := net.ParseIP(advertised); ip != nil {
			if v4 := ip.To4(); v4 != nil {
				return v4
			}
		} else if ips, err := net.LookupIP(advertised); err == nil {
			for _, ip := range ips {
				if v4 := ip.To4(); v4 != nil {
					return v4
				}
			}
		}
	}

	if tcp, ok := local.(*net.TCPAddr); ok {
		if v4 := tcp.IP.To4(); v4 != nil && !v4.IsUnspecified() {
			return v4
		}
	}
	return net.IPv4(127, 0, 0, 1).To4()
}

// FormatAddress renders the h1,h2,h3,h4,p1,p2 tuple of a 227 reply.
func FormatAddress(ip net.IP, port int) string {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", v4[0], v4[1], v4[2], v4[3], port/256, port%256)
}
