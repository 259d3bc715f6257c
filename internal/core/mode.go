// Package core is the orchestration layer.  It composes the bind,
// launch and supervise packages into the two ways bindwrap can run and
// provides a builder that selects one from a Config.
//
// Architecture layers (bottom → top):
//
//	config  →  bind  →  launch / supervise  →  core  →  cmd (CLI)
//
// Both modes prepare the listening socket on descriptor 0 before the
// worker exists.  Only PathMode stays resident afterwards, because only a
// filesystem socket leaves something behind to clean up.
package core

import "context"

// Mode is a complete way of running a worker.  Run returns the exit code
// bindwrap should terminate with; a successful NetworkMode never returns.
type Mode interface {
	Run(ctx context.Context) (int, error)
}
