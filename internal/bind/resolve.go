// Package bind turns a BindSpec into a listening socket sitting on the
// descriptor slot a FastCGI worker expects.
//
// The steps are kept separate so each can fail with its own diagnostic:
//
//	Resolve  →  Prepare  →  (*Socket).Listen  →  Install
//
// Sockets are created with golang.org/x/sys/unix rather than net.Listen
// because the worker needs a bare descriptor with a fixed backlog, and the
// socket/bind failure causes must stay distinguishable.
package bind

import (
	"context"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"bindwrap/config"
	bwerrors "bindwrap/internal/errors"
	"bindwrap/util"
)

// Candidate is one concrete address a socket may be bound to.
type Candidate struct {
	Family int
	Addr   unix.Sockaddr
}

func (c Candidate) String() string {
	return util.FamilyName(c.Family) + " " + util.FormatSockaddr(c.Addr)
}

// Resolver looks up hosts and services.  net.DefaultResolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// Resolve expands spec into the ordered list of addresses to try.
func Resolve(ctx context.Context, spec config.BindSpec) ([]Candidate, error) {
	return ResolveWith(ctx, net.DefaultResolver, spec)
}

// ResolveWith is Resolve with an explicit resolver.
func ResolveWith(ctx context.Context, r Resolver, spec config.BindSpec) ([]Candidate, error) {
	switch spec.Kind {
	case config.KindPath:
		return []Candidate{{
			Family: unix.AF_UNIX,
			Addr:   &unix.SockaddrUnix{Name: spec.Path},
		}}, nil
	case config.KindNetwork:
		return resolveNetwork(ctx, r, spec)
	default:
		return nil, bwerrors.Config("", spec.Raw, bwerrors.ErrNoBindTarget)
	}
}

func resolveNetwork(ctx context.Context, r Resolver, spec config.BindSpec) ([]Candidate, error) {
	port, err := r.LookupPort(ctx, "tcp", spec.Service)
	if err != nil {
		return nil, &bwerrors.ResolveError{Host: spec.Host, Service: spec.Service, Input: spec.Raw, Err: err}
	}

	// Passive lookup with no host: the wildcard of each family.
	if spec.Host == "" {
		return []Candidate{
			{Family: unix.AF_INET, Addr: &unix.SockaddrInet4{Port: port}},
			{Family: unix.AF_INET6, Addr: &unix.SockaddrInet6{Port: port}},
		}, nil
	}

	addrs, err := r.LookupIPAddr(ctx, spec.Host)
	if err != nil {
		return nil, &bwerrors.ResolveError{Host: spec.Host, Service: spec.Service, Input: spec.Raw, Err: err}
	}

	cands := make([]Candidate, 0, len(addrs))
	for _, a := range addrs {
		if c, ok := candidateFor(a, port); ok {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		return nil, &bwerrors.ResolveError{Host: spec.Host, Service: spec.Service, Input: spec.Raw, Err: bwerrors.ErrNoAddresses}
	}
	return cands, nil
}

// candidateFor converts a resolved IP into a sockaddr.  IPv4-mapped IPv6
// results are bound as plain IPv4.
func candidateFor(a net.IPAddr, port int) (Candidate, bool) {
	if ip4 := a.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return Candidate{Family: unix.AF_INET, Addr: sa}, true
	}
	ip16 := a.IP.To16()
	if ip16 == nil {
		return Candidate{}, false
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip16)
	if a.Zone != "" {
		if ifi, err := net.InterfaceByName(a.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		} else if n, err := strconv.Atoi(a.Zone); err == nil && n > 0 {
			sa.ZoneId = uint32(n)
		}
	}
	return Candidate{Family: unix.AF_INET6, Addr: sa}, true
}
