// Package errors provides domain-specific error types for bindwrap.
//
// Every failure bindwrap can hit is terminal, but the types still carry
// structured context (the step that failed, the address family, the
// offending configuration value) so that the single diagnostic line printed
// before exit names exactly what went wrong.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNoBindTarget    = errors.New("no bind target configured")
	ErrConflictingBind = errors.New("both bind targets configured")
	ErrEmptyValue      = errors.New("empty value")
	ErrPathTooLong     = errors.New("path too long")
	ErrAddressTooLong  = errors.New("address too long")
	ErrPortRequired    = errors.New("port required")
	ErrNoAddresses     = errors.New("unknown address")
	ErrNoCommand       = errors.New("no worker command given")
)

// ── Structured error types ───────────────────────────────────────────

// ConfigError represents an invalid or missing configuration value.
type ConfigError struct {
	Field string // environment variable or flag name
	Value string // the offending value ("" if missing)
	Err   error  // usually one of the sentinels above
	Hint  string // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Value != "" {
		msg += ": " + e.Value
	}
	if e.Hint != "" {
		msg += " (hint: " + e.Hint + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ResolveError represents a failed name or service lookup.
type ResolveError struct {
	Host    string
	Service string
	Input   string // the configuration string being resolved
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve: %v: %s", e.Err, e.Input)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// SocketError represents a failed socket(2), bind(2), listen(2) or chmod(2)
// on the listening endpoint.
type SocketError struct {
	Op     string // "socket", "bind", "listen", "chmod"
	Family string // "PF_UNIX", "PF_INET", "PF_INET6"
	Addr   string // the configured bind target
	Err    error  // usually a syscall.Errno
}

func (e *SocketError) Error() string {
	if e.Op == "socket" {
		return fmt.Sprintf("%s socket: %v", e.Family, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v: %s", e.Op, e.Family, e.Err, e.Addr)
}

func (e *SocketError) Unwrap() error { return e.Err }

// InstallError represents a failure to move the listening socket onto the
// descriptor slot the worker expects.
type InstallError struct {
	FD   int
	Slot int
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("dup3(%d, %d): %v", e.FD, e.Slot, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// SuperviseError represents a failure while starting or supervising the
// worker in filesystem-path mode.
type SuperviseError struct {
	Op  string // "watch signals", "spawn", "read signal", "wait"
	Pid int    // 0 if no child exists yet
	Err error
}

func (e *SuperviseError) Error() string {
	if e.Pid > 0 {
		return fmt.Sprintf("%s (pid %d): %v", e.Op, e.Pid, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SuperviseError) Unwrap() error { return e.Err }

// LaunchError represents a failure to replace the process image with the
// worker. Argv is the full attempted command line.
type LaunchError struct {
	Argv []string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("could not exec command: %v: %s", e.Err, strings.Join(e.Argv, " "))
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Config creates a ConfigError for field with the given sentinel.
func Config(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

// Socket creates a SocketError.
func Socket(op, family, addr string, err error) *SocketError {
	return &SocketError{Op: op, Family: family, Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// Errno extracts the underlying system error number, if any.
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// IsConfig reports whether err stems from configuration rather than the
// operating system.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
