package supervise

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

// Interest is the set of signals the supervisor consumes.  SIGINT and
// SIGHUP are left out when the process started with them ignored.
var Interest = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGCHLD}

// watchSet is Interest minus the terminal signals that are currently
// ignored.  A notified signal is no longer ignored, and the worker would
// then start with the default disposition instead of inheriting SIG_IGN.
func watchSet() []os.Signal {
	set := make([]os.Signal, 0, len(Interest))
	for _, sig := range Interest {
		if (sig == syscall.SIGINT || sig == syscall.SIGHUP) && signal.Ignored(sig) {
			continue
		}
		set = append(set, sig)
	}
	return set
}

// signalBuffer bounds how many undelivered signals may queue between two
// reads.  os/signal drops deliveries to a full channel.
const signalBuffer = 32

// ErrSourceClosed is returned by Next once the source has been stopped.
var ErrSourceClosed = errors.New("signal source closed")

// Source yields one signal at a time.
type Source interface {
	Next(ctx context.Context) (syscall.Signal, error)
}

// Signals is a Source fed by os/signal.  Signals in Interest are diverted
// from their default disposition into its queue from Watch until Stop.
type Signals struct {
	ch   chan os.Signal
	done chan struct{}
}

// Watch starts queueing the interest set.  It must be called before the
// worker is started so an early SIGCHLD is not lost.
func Watch() *Signals {
	s := &Signals{
		ch:   make(chan os.Signal, signalBuffer),
		done: make(chan struct{}),
	}
	signal.Notify(s.ch, watchSet()...)
	return s
}

// Next blocks until a signal arrives, the context ends or Stop is called.
func (s *Signals) Next(ctx context.Context) (syscall.Signal, error) {
	select {
	case sig := <-s.ch:
		ss, ok := sig.(syscall.Signal)
		if !ok {
			return 0, errors.New("unexpected signal type")
		}
		return ss, nil
	case <-s.done:
		return 0, ErrSourceClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Stop restores default handling and wakes any pending Next.
func (s *Signals) Stop() {
	select {
	case <-s.done:
		return
	default:
	}
	signal.Stop(s.ch)
	close(s.done)
}
