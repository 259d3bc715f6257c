package util

import (
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// FamilyName returns the protocol-family label used in diagnostics.
func FamilyName(family int) string {
	switch family {
	case unix.AF_UNIX:
		return "PF_UNIX"
	case unix.AF_INET:
		return "PF_INET"
	case unix.AF_INET6:
		return "PF_INET6"
	default:
		return "PF_" + strconv.Itoa(family)
	}
}

// FormatSockaddr renders sa as "host:port" or a socket path.
func FormatSockaddr(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrUnix:
		return a.Name
	case *unix.SockaddrInet4:
		return FormatAddr(netip.AddrFrom4(a.Addr).String(), a.Port)
	case *unix.SockaddrInet6:
		ip := netip.AddrFrom16(a.Addr)
		if a.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(a.ZoneId)); err == nil {
				ip = ip.WithZone(ifi.Name)
			} else {
				ip = ip.WithZone(strconv.Itoa(int(a.ZoneId)))
			}
		}
		return FormatAddr(ip.String(), a.Port)
	default:
		return "<unknown>"
	}
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
