// Package supervise keeps bindwrap resident as the parent of a worker whose
// listening socket lives at a filesystem path, and removes that path once
// the worker has been reaped.
//
// Signals are consumed one at a time from a Source rather than handled
// asynchronously.  A SIGCHLD that arrives before the loop starts waits in
// the queue, so checking for an exited worker and waiting for the next
// event never race.
package supervise

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"bindwrap/config"
	bwerrors "bindwrap/internal/errors"
	"bindwrap/internal/metrics"
	"bindwrap/util"
)

// Child is the supervised worker.
type Child interface {
	Pid() int
	Signal(sig os.Signal) error
	// TryReap collects the child without blocking; reaped is false while
	// it is still running.
	TryReap() (status unix.WaitStatus, reaped bool, err error)
}

// Supervisor waits on a single worker.
type Supervisor struct {
	Source     Source
	Child      Child
	Rendezvous string // socket path removed after the worker is reaped
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// Remove deletes the rendezvous path.  Defaults to os.Remove.
	Remove func(path string) error

	cleanup sync.Once
}

// Run consumes signals until the worker is reaped and returns the exit
// code bindwrap should terminate with.
//
//	SIGTERM         forwarded to the worker
//	SIGINT, SIGHUP  ignored: the terminal already sent them to our group
//	SIGCHLD         non-blocking reap; spurious wakes are ignored
//
// If the source fails, the worker is sent SIGTERM and an error returned.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	pid := s.Child.Pid()
	for {
		sig, err := s.Source.Next(ctx)
		if err != nil {
			s.Metrics.RecordError(err.Error())
			if kerr := s.Child.Signal(syscall.SIGTERM); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				s.Logger.Warn("terminate worker %d: %v", pid, kerr)
			}
			return config.ExitFailure, &bwerrors.SuperviseError{Op: "read signal", Pid: pid, Err: err}
		}
		s.Metrics.SignalReceived(sig)

		switch sig {
		case syscall.SIGTERM:
			s.Logger.Verbose("forwarding %v to worker %d", sig, pid)
			if err := s.Child.Signal(sig); err != nil {
				s.Logger.Warn("forward %v to worker %d: %v", sig, pid, err)
				continue
			}
			s.Metrics.SignalForwarded()

		case syscall.SIGINT, syscall.SIGHUP:
			s.Logger.Debug("%v left to the process group", sig)

		case syscall.SIGCHLD:
			status, reaped, err := s.Child.TryReap()
			if err != nil {
				s.Metrics.RecordError(err.Error())
				return config.ExitFailure, &bwerrors.SuperviseError{Op: "wait", Pid: pid, Err: err}
			}
			if !reaped {
				s.Metrics.SpuriousWake()
				s.Logger.Debug("SIGCHLD with worker %d still running", pid)
				continue
			}
			code := ExitCode(status)
			s.Metrics.WorkerReaped(code)
			s.Logger.Verbose("worker %d %s", pid, describe(status))
			s.removeRendezvous()
			return code, nil
		}
	}
}

func (s *Supervisor) removeRendezvous() {
	s.cleanup.Do(func() {
		if s.Rendezvous == "" {
			return
		}
		remove := s.Remove
		if remove == nil {
			remove = os.Remove
		}
		if err := remove(s.Rendezvous); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.Logger.Warn("remove %s: %v", s.Rendezvous, err)
		}
	})
}

// ExitCode maps a wait status to bindwrap's own exit code: the worker's
// exit status, or 128+N if it was killed by signal N.
func ExitCode(status unix.WaitStatus) int {
	switch {
	case status.Exited():
		return status.ExitStatus()
	case status.Signaled():
		return config.ExitSignalBase + int(status.Signal())
	default:
		return config.ExitFailure
	}
}

func describe(status unix.WaitStatus) string {
	switch {
	case status.Exited():
		return "exited with status " + strconv.Itoa(status.ExitStatus())
	case status.Signaled():
		s := "killed by " + status.Signal().String()
		if status.CoreDump() {
			s += " (core dumped)"
		}
		return s
	default:
		return "ended abnormally"
	}
}
