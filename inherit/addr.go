// Package inherit is the worker side of bindwrap.  A worker started by
// bindwrap finds its listening socket on descriptor 0; this package checks
// for it, describes its address and wraps it for use with net.
package inherit

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

var (
	ErrUnsupportedFamily = errors.New("unsupported address family")
	ErrShortAddress      = errors.New("address buffer too short")
)

// Family tags the populated variant of an Addr.
type Family int

const (
	FamilyIPv4 Family = iota + 1
	FamilyIPv6
	FamilyPath
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyPath:
		return "path"
	default:
		return "unknown"
	}
}

// Addr is a socket address: IPv4 or IPv6 with a port, or a filesystem
// path.  The zero value is not a valid address.
type Addr struct {
	family Family
	ip     netip.Addr // carries the IPv6 zone
	port   int
	path   string
}

// IPv4 builds an IPv4 address.
func IPv4(ip [4]byte, port int) Addr {
	return Addr{family: FamilyIPv4, ip: netip.AddrFrom4(ip), port: port}
}

// IPv6 builds an IPv6 address.  zone may be empty.
func IPv6(ip [16]byte, port int, zone string) Addr {
	return Addr{family: FamilyIPv6, ip: netip.AddrFrom16(ip).WithZone(zone), port: port}
}

// Path builds a filesystem socket address.
func Path(p string) Addr {
	return Addr{family: FamilyPath, path: p}
}

func (a Addr) Family() Family { return a.family }
func (a Addr) IP() netip.Addr { return a.ip }
func (a Addr) Port() int { return a.port }
func (a Addr) Zone() string { return a.ip.Zone() }
func (a Addr) Path() string { return a.path }

// Network implements net.Addr.
func (a Addr) Network() string {
	switch a.family {
	case FamilyIPv4:
		return "tcp4"
	case FamilyIPv6:
		return "tcp6"
	case FamilyPath:
		return "unix"
	default:
		return ""
	}
}

// String implements net.Addr.
func (a Addr) String() string {
	switch a.family {
	case FamilyIPv4, FamilyIPv6:
		return netip.AddrPortFrom(a.ip, uint16(a.port)).String()
	case FamilyPath:
		return a.path
	default:
		return "<invalid>"
	}
}

var _ net.Addr = Addr{}

// FromSockaddr converts a decoded socket address.
func FromSockaddr(sa unix.Sockaddr) (Addr, error) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return IPv4(sa.Addr, sa.Port), nil
	case *unix.SockaddrInet6:
		return IPv6(sa.Addr, sa.Port, zoneName(sa.ZoneId)), nil
	case *unix.SockaddrUnix:
		return Path(sa.Name), nil
	default:
		return Addr{}, ErrUnsupportedFamily
	}
}

// DecodeRaw decodes a sockaddr as returned by the kernel: the family in
// host byte order, then the port in network byte order.  A path is taken
// up to the first NUL or the end of the buffer.
func DecodeRaw(b []byte) (Addr, error) {
	if len(b) < 2 {
		return Addr{}, ErrShortAddress
	}
	switch binary.NativeEndian.Uint16(b) {
	case unix.AF_INET:
		if len(b) < 8 {
			return Addr{}, ErrShortAddress
		}
		var ip [4]byte
		copy(ip[:], b[4:8])
		return IPv4(ip, int(binary.BigEndian.Uint16(b[2:4]))), nil

	case unix.AF_INET6:
		if len(b) < 24 {
			return Addr{}, ErrShortAddress
		}
		var ip [16]byte
		copy(ip[:], b[8:24])
		var zone string
		if len(b) >= unix.SizeofSockaddrInet6 {
			zone = zoneName(binary.NativeEndian.Uint32(b[24:28]))
		}
		return IPv6(ip, int(binary.BigEndian.Uint16(b[2:4])), zone), nil

	case unix.AF_UNIX:
		p := b[2:]
		for i, c := range p {
			if c == 0 {
				p = p[:i]
				break
			}
		}
		return Path(string(p)), nil

	default:
		return Addr{}, ErrUnsupportedFamily
	}
}

func zoneName(id uint32) string {
	if id == 0 {
		return ""
	}
	if ifi, err := net.InterfaceByIndex(int(id)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(id), 10)
}
