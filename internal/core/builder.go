package core

import (
	"bindwrap/config"
	"bindwrap/internal/bind"
	"bindwrap/internal/launch"
	"bindwrap/internal/metrics"
	"bindwrap/util"
)

// Build constructs the Mode selected by cfg's bind variables.  environ is
// the process environment in os.Environ form; the bind variables are
// removed from the copy the worker receives.
func Build(cfg *config.Config, environ []string, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, err := cfg.BindSpec()
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case config.KindPath:
		return buildPath(cfg, spec, environ, logger, m), nil
	default:
		return buildNetwork(cfg, spec, environ, logger), nil
	}
}

// WorkerEnv returns the environment the worker will see: environ without
// the bind variables.
func WorkerEnv(environ []string) []string {
	return launch.FilterEnv(environ, config.UnixBindVar, config.InetBindVar)
}

// ── mode builders ────────────────────────────────────────────────────

func buildPath(cfg *config.Config, spec config.BindSpec, environ []string, logger *util.Logger, m *metrics.Collector) Mode {
	return &PathMode{
		Spec:    spec,
		Policy:  bind.Policy{TrustPeers: cfg.TrustPeers},
		Command: cfg.Command,
		Env:     WorkerEnv(environ),
		Slot:    config.ListenSlot,
		Logger:  logger,
		Metrics: m,
	}
}

func buildNetwork(cfg *config.Config, spec config.BindSpec, environ []string, logger *util.Logger) Mode {
	return &NetworkMode{
		Spec:    spec,
		Command: cfg.Command,
		Env:     WorkerEnv(environ),
		Slot:    config.ListenSlot,
		Logger:  logger,
	}
}
