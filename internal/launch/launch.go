// Package launch hands control to the worker executable, either by
// replacing the current process image or by starting it as a supervised
// child.  In both cases descriptor 0 of the worker is the listening socket.
package launch

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	bwerrors "bindwrap/internal/errors"
)

// Exec replaces the current process with argv[0].  No PATH search is
// performed.  On success it does not return.
func Exec(argv []string, env []string) error {
	if len(argv) == 0 {
		return bwerrors.ErrNoCommand
	}
	err := unix.Exec(argv[0], argv, env)
	return &bwerrors.LaunchError{Argv: argv, Err: err}
}

// Spawn starts argv[0] as a child with listener as its descriptor 0 and
// this process's stdout and stderr.  The child stays in our process group
// so terminal-generated signals reach it directly.
func Spawn(argv []string, env []string, listener *os.File) (*Process, error) {
	if len(argv) == 0 {
		return nil, bwerrors.ErrNoCommand
	}
	proc, err := os.StartProcess(argv[0], argv, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{listener, os.Stdout, os.Stderr},
		Sys:   &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM},
	})
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM) {
			return nil, &bwerrors.SuperviseError{Op: "fork", Err: err}
		}
		return nil, &bwerrors.LaunchError{Argv: argv, Err: unwrapPathError(err)}
	}
	return &Process{proc: proc, pid: proc.Pid}, nil
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// Process is a started worker.  It is reaped only through TryReap.
type Process struct {
	proc   *os.Process
	pid    int
	reaped bool
}

// Pid returns the worker's process id.
func (p *Process) Pid() int { return p.pid }

// Signal delivers sig to the worker.  After the worker has been reaped it
// reports os.ErrProcessDone instead of signalling a recycled pid.
func (p *Process) Signal(sig os.Signal) error {
	if p.reaped {
		return os.ErrProcessDone
	}
	return p.proc.Signal(sig)
}

// TryReap collects the worker's status without blocking.  reaped is false
// when the worker is still running.  An interrupted wait is retried.
func (p *Process) TryReap() (status unix.WaitStatus, reaped bool, err error) {
	if p.reaped {
		return 0, false, os.ErrProcessDone
	}
	for {
		pid, err := unix.Wait4(p.pid, &status, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		if pid == 0 {
			return 0, false, nil
		}
		p.reaped = true
		p.proc.Release() //nolint:errcheck
		return status, true, nil
	}
}

// CommandLine renders argv for diagnostics, quoting arguments that would
// otherwise be ambiguous.
func CommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
