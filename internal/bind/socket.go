package bind

import (
	"os"

	"golang.org/x/sys/unix"

	"bindwrap/config"
	bwerrors "bindwrap/internal/errors"
	"bindwrap/util"
)

// State is the lifecycle position of a Socket.
type State int

const (
	StateBound State = iota + 1
	StateListening
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unbound"
	}
}

// Socket is an owned stream socket descriptor together with the BindSpec that
// produced it.  It is not safe for concurrent use.
type Socket struct {
	fd     int
	family int
	spec   config.BindSpec
	state  State
}

// Policy carries the decisions Prepare applies after a successful bind.
type Policy struct {
	// TrustPeers widens a socket path to TrustedPathMode; otherwise it is
	// narrowed to PrivatePathMode.
	TrustPeers bool
}

// PathMode returns the permission bits a socket path should carry.
func (p Policy) PathMode() os.FileMode {
	if p.TrustPeers {
		return config.TrustedPathMode
	}
	return config.PrivatePathMode
}

// Prepare creates a stream socket and binds it to the first candidate that
// accepts it.  When every candidate fails, the error describes the last
// one tried: a SocketError with Op "socket" or "bind" and the original
// errno.
func Prepare(spec config.BindSpec, cands []Candidate, policy Policy) (*Socket, error) {
	if len(cands) == 0 {
		return nil, &bwerrors.ResolveError{Input: spec.Raw, Err: bwerrors.ErrNoAddresses}
	}

	var lastErr error
	for _, c := range cands {
		fam := util.FamilyName(c.Family)

		fd, err := unix.Socket(c.Family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			lastErr = bwerrors.Socket("socket", fam, spec.Raw, err)
			continue
		}
		if c.Family != unix.AF_UNIX {
			if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
				unix.Close(fd) //nolint:errcheck
				lastErr = bwerrors.Socket("setsockopt", fam, spec.Raw, err)
				continue
			}
		}
		if err := unix.Bind(fd, c.Addr); err != nil {
			// The close must not clobber the bind errno.
			unix.Close(fd) //nolint:errcheck
			lastErr = bwerrors.Socket("bind", fam, spec.Raw, err)
			continue
		}

		sock := &Socket{fd: fd, family: c.Family, spec: spec, state: StateBound}
		if spec.Kind == config.KindPath {
			if err := unix.Chmod(spec.Path, uint32(policy.PathMode())); err != nil {
				sock.Discard()
				return nil, bwerrors.Socket("chmod", fam, spec.Raw, err)
			}
		}
		return sock, nil
	}
	return nil, lastErr
}

// Listen marks the socket as accepting connections with the fixed backlog.
func (s *Socket) Listen() error {
	if err := unix.Listen(s.fd, config.ListenBacklog); err != nil {
		return bwerrors.Socket("listen", util.FamilyName(s.family), s.spec.Raw, err)
	}
	s.state = StateListening
	return nil
}

// FD returns the current descriptor number.
func (s *Socket) FD() int { return s.fd }

// Family returns the address family the socket was created in.
func (s *Socket) Family() int { return s.family }

// State returns the lifecycle state.
func (s *Socket) State() State { return s.state }

// Addr reads back the locally bound address.
func (s *Socket) Addr() (unix.Sockaddr, error) {
	return unix.Getsockname(s.fd)
}

// File wraps the descriptor for handing to a child process.  The returned
// file shares the descriptor; closing it closes the socket.
func (s *Socket) File() *os.File {
	return os.NewFile(uintptr(s.fd), "listener:"+s.spec.String())
}

// Close releases this process's handle on the socket.  A socket path, if
// any, is left in place.
func (s *Socket) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	return unix.Close(s.fd)
}

// MarkClosed records that the descriptor was closed through another handle,
// such as the *os.File returned by File.
func (s *Socket) MarkClosed() { s.state = StateClosed }

// Discard closes the socket and removes its path.  It is used on setup
// failures, before any worker could have inherited the socket.
func (s *Socket) Discard() {
	s.Close() //nolint:errcheck
	if s.spec.Kind == config.KindPath {
		os.Remove(s.spec.Path) //nolint:errcheck
	}
}
