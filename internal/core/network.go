package core

import (
	"context"

	"bindwrap/config"
	"bindwrap/internal/bind"
	"bindwrap/internal/launch"
	"bindwrap/util"
)

// NetworkMode binds a TCP endpoint and replaces bindwrap with the worker.
// There is nothing to clean up afterwards, so no supervisor is kept.
type NetworkMode struct {
	Spec    config.BindSpec
	Command []string
	Env     []string // already filtered
	Slot    int
	Logger  *util.Logger

	// Exec replaces the process image.  Defaults to launch.Exec.
	Exec func(argv, env []string) error
}

// Run prepares the socket and execs the worker.  It only returns on error,
// or when Exec is a test double that returns nil.
func (m *NetworkMode) Run(ctx context.Context) (int, error) {
	if _, err := listen(ctx, m.Spec, bind.Policy{}, m.Slot, m.Logger); err != nil {
		return config.ExitFailure, err
	}

	exec := m.Exec
	if exec == nil {
		exec = launch.Exec
	}
	m.Logger.Verbose("exec %s", launch.CommandLine(m.Command))
	if err := exec(m.Command, m.Env); err != nil {
		return config.ExitFailure, err
	}
	return 0, nil
}
