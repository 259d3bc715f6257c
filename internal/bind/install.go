package bind

import (
	"golang.org/x/sys/unix"

	bwerrors "bindwrap/internal/errors"
)

// Install moves the socket onto descriptor slot and closes the original.
// The installed descriptor is inheritable across exec.  Installing a
// socket that already sits at slot only clears close-on-exec.
func Install(s *Socket, slot int) error {
	if s.fd == slot {
		if _, err := unix.FcntlInt(uintptr(slot), unix.F_SETFD, 0); err != nil {
			return &bwerrors.InstallError{FD: s.fd, Slot: slot, Err: err}
		}
		return nil
	}

	// dup3 rather than dup2: linux/arm64 has no dup2.
	if err := unix.Dup3(s.fd, slot, 0); err != nil {
		return &bwerrors.InstallError{FD: s.fd, Slot: slot, Err: err}
	}
	unix.Close(s.fd) //nolint:errcheck
	s.fd = slot
	return nil
}
