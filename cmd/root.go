// Package cmd wires up the CLI flags and dispatches to the bindwrap core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"bindwrap/config"
	"bindwrap/internal/core"
	"bindwrap/internal/metrics"
	"bindwrap/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X bindwrap/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// Main runs bindwrap with argv as its full argument vector and returns the
// process exit code.  Fatal errors are printed as "prog: error".
func Main(argv []string) int {
	prog := "bindwrap"
	if len(argv) > 0 && argv[0] != "" {
		prog = filepath.Base(argv[0])
		argv = argv[1:]
	}
	code, err := Execute(context.Background(), prog, argv, os.LookupEnv, os.Environ())
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
	}
	return code
}

// Execute parses args, overlays them on the environment and runs the
// selected mode.  environ is passed on to the worker with the bind
// variables removed.
func Execute(ctx context.Context, prog string, args []string, lookup config.LookupFunc, environ []string) (int, error) {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg, lookup)

	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(stderr)
	// Everything from WORKER on belongs to the worker.
	fs.SetInterspersed(false)

	var verbose int
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Resolve and print the plan without binding")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return config.ExitFailure, err
	}
	if showHelp {
		printUsage(fs)
		return 0, nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "%s %s\n", prog, version)
		return 0, nil
	}
	if fs.Changed("verbose") {
		cfg.Verbose = verbose
	}
	cfg.Command = fs.Args()

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return config.ExitFailure, err
	}

	if cfg.DryRun {
		plan, err := core.BuildPlan(ctx, cfg, environ)
		if err != nil {
			return config.ExitFailure, err
		}
		if err := plan.Write(stdout); err != nil {
			return config.ExitFailure, err
		}
		return 0, nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(prog, int(util.LogNormal)+cfg.Verbose)
	logger.SetOutput(stderr)

	mode, err := core.Build(cfg, environ, logger, metrics.New())
	if err != nil {
		return config.ExitFailure, err
	}
	return mode.Run(ctx)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `bindwrap v%s

Prepare a listening socket on descriptor 0 and start a worker on it.

Usage:
  %s [options] [--] WORKER [ARGS...]

Environment:
  %-27s socket path; bindwrap supervises the worker
  %-27s [host]:service; bindwrap execs the worker
  %-27s if set, the socket path is world-accessible
  %-27s default verbosity (0-3)

Options:
`, version, fs.Name(),
		config.UnixBindVar, config.InetBindVar, config.PeerAddrsVar, config.VerboseVar)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Examples:
  %[1]s=/run/app.sock %[2]s /opt/app/worker
  %[3]s=127.0.0.1:9000 %[2]s -v /opt/app/worker --threads 4
`, config.UnixBindVar, fs.Name(), config.InetBindVar)
}
