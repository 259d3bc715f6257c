package core

import (
	"context"
	"os"

	"bindwrap/config"
	"bindwrap/internal/bind"
	"bindwrap/internal/launch"
	"bindwrap/internal/metrics"
	"bindwrap/internal/supervise"
	"bindwrap/util"
)

// SpawnFunc starts the worker with listener as its descriptor 0.
type SpawnFunc func(argv, env []string, listener *os.File) (supervise.Child, error)

func spawnProcess(argv, env []string, listener *os.File) (supervise.Child, error) {
	p, err := launch.Spawn(argv, env, listener)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PathMode binds a filesystem socket, starts the worker as a child and
// supervises it until it is reaped, then removes the socket path.
type PathMode struct {
	Spec    config.BindSpec
	Policy  bind.Policy
	Command []string
	Env     []string // already filtered
	Slot    int
	Logger  *util.Logger
	Metrics *metrics.Collector

	// Spawn defaults to launch.Spawn.
	Spawn SpawnFunc
}

// Run returns the worker's exit status, or 128+N if it was killed by
// signal N.
func (m *PathMode) Run(ctx context.Context) (int, error) {
	sock, err := listen(ctx, m.Spec, m.Policy, m.Slot, m.Logger)
	if err != nil {
		return config.ExitFailure, err
	}

	// Queue signals before the worker exists so its SIGCHLD cannot be
	// missed.
	sigs := supervise.Watch()
	defer sigs.Stop()

	spawn := m.Spawn
	if spawn == nil {
		spawn = spawnProcess
	}

	listener := sock.File()
	child, err := spawn(m.Command, m.Env, listener)
	// The worker alone serves connections from here on.
	listener.Close() //nolint:errcheck
	sock.MarkClosed()
	if err != nil {
		os.Remove(m.Spec.Path) //nolint:errcheck
		return config.ExitFailure, err
	}

	m.Metrics.WorkerStarted(child.Pid())
	m.Logger.Verbose("started worker %d: %s", child.Pid(), launch.CommandLine(m.Command))

	sup := &supervise.Supervisor{
		Source:     sigs,
		Child:      child,
		Rendezvous: m.Spec.Path,
		Logger:     m.Logger,
		Metrics:    m.Metrics,
	}
	code, err := sup.Run(ctx)
	m.Logger.Verbose("supervision summary: %s", m.Metrics.JSON())
	return code, err
}
