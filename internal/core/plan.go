package core

import (
	"context"
	"fmt"
	"io"

	"bindwrap/config"
	"bindwrap/internal/bind"
	"bindwrap/internal/launch"
)

// Plan describes what a run would do without creating any socket.
type Plan struct {
	Spec       config.BindSpec
	Candidates []bind.Candidate
	Supervised bool
	Policy     bind.Policy
	Command    []string
	Removed    []string // bind variables withheld from the worker
}

// BuildPlan validates cfg and resolves its bind target.
func BuildPlan(ctx context.Context, cfg *config.Config, environ []string) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, err := cfg.BindSpec()
	if err != nil {
		return nil, err
	}
	cands, err := bind.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Spec:       spec,
		Candidates: cands,
		Supervised: spec.Kind == config.KindPath,
		Policy:     bind.Policy{TrustPeers: cfg.TrustPeers},
		Command:    cfg.Command,
		Removed:    launch.Withheld(environ, config.UnixBindVar, config.InetBindVar),
	}, nil
}

// Write prints the plan one field per line.
func (p *Plan) Write(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("mode:        %s", p.Spec.Kind),
		fmt.Sprintf("target:      %s", p.Spec),
	}
	for _, c := range p.Candidates {
		lines = append(lines, fmt.Sprintf("candidate:   %s", c))
	}
	if p.Spec.Kind == config.KindPath {
		lines = append(lines, fmt.Sprintf("permissions: %04o", uint32(p.Policy.PathMode().Perm())))
	}
	lines = append(lines,
		fmt.Sprintf("backlog:     %d", config.ListenBacklog),
		fmt.Sprintf("supervised:  %t", p.Supervised),
		fmt.Sprintf("command:     %s", launch.CommandLine(p.Command)),
	)
	for _, k := range p.Removed {
		lines = append(lines, fmt.Sprintf("unset:       %s", k))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
