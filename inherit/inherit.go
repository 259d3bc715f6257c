package inherit

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Slot is the descriptor bindwrap installs the listening socket on.
const Slot = 0

// ErrNotInherited reports that the descriptor is not a socket.
var ErrNotInherited = errors.New("no socket inherited on descriptor 0")

// Check reports whether fd is a socket and, if so, its local address.  A
// descriptor that is open but not a socket yields ok=false and no error.
func Check(fd int) (addr Addr, ok bool, err error) {
	sa, err := unix.Getsockname(fd)
	if errors.Is(err, unix.ENOTSOCK) {
		return Addr{}, false, nil
	}
	if err != nil {
		return Addr{}, false, fmt.Errorf("getsockname(%d): %w", fd, err)
	}
	addr, err = FromSockaddr(sa)
	if err != nil {
		return Addr{}, true, err
	}
	return addr, true, nil
}

// Listener wraps the inherited socket as a net.Listener.  The descriptor is
// duplicated; descriptor 0 itself is closed once the listener is created.
func Listener() (net.Listener, error) {
	return ListenerFD(Slot)
}

// ListenerFD is Listener for an arbitrary descriptor.
func ListenerFD(fd int) (net.Listener, error) {
	if _, ok, err := Check(fd); err != nil {
		return nil, err
	} else if !ok {
		if fd == Slot {
			return nil, ErrNotInherited
		}
		return nil, fmt.Errorf("descriptor %d is not a socket", fd)
	}
	f := os.NewFile(uintptr(fd), "inherited-listener")
	defer f.Close()
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("wrap descriptor %d: %w", fd, err)
	}
	return ln, nil
}
