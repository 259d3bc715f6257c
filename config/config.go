// Package config defines the runtime configuration for bindwrap and parses
// the bind target strings into a BindSpec.
package config

import (
	"fmt"
	"strings"

	bwerrors "bindwrap/internal/errors"
)

// Config holds every tuneable for a single bindwrap run.
type Config struct {
	// ── Bind target ──────────────────────────────────────────────────
	UnixBind    string
	HasUnixBind bool
	InetBind    string
	HasInetBind bool
	TrustPeers  bool // FASTCGI4J_WEB_SERVER_ADDRS present

	// ── Worker ───────────────────────────────────────────────────────
	Command []string // argv; Command[0] is the executable path

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// ── Bind spec ────────────────────────────────────────────────────────

// Kind tags the populated variant of a BindSpec.
type Kind int

const (
	KindPath Kind = iota + 1
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindPath:
		return "unix"
	case KindNetwork:
		return "inet"
	default:
		return "unknown"
	}
}

// BindSpec is the resolved choice of bind target.  Exactly one of Path or
// (Host, Service) is meaningful, as selected by Kind.  An empty Host means
// the wildcard address.
type BindSpec struct {
	Kind    Kind
	Path    string
	Host    string
	Service string
	Raw     string // the configuration string it was parsed from
}

func (b BindSpec) String() string {
	switch b.Kind {
	case KindPath:
		return b.Path
	case KindNetwork:
		host := b.Host
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return host + ":" + b.Service
	default:
		return "<none>"
	}
}

// ParsePath validates a filesystem socket path.
func ParsePath(s string) (BindSpec, error) {
	if s == "" {
		return BindSpec{}, bwerrors.Config(UnixBindVar, "", bwerrors.ErrEmptyValue)
	}
	if len(s) > MaxPathLen {
		return BindSpec{}, &bwerrors.ConfigError{
			Field: UnixBindVar,
			Value: s,
			Err:   bwerrors.ErrPathTooLong,
			Hint:  fmt.Sprintf("socket paths are limited to %d bytes", MaxPathLen),
		}
	}
	return BindSpec{Kind: KindPath, Path: s, Raw: s}, nil
}

// ParseNetwork splits "[host]:service", "host:service" or "service".
// The split happens at the last colon unless a closing bracket follows it,
// so bracketed IPv6 literals keep their colons.
func ParseNetwork(s string) (BindSpec, error) {
	if s == "" {
		return BindSpec{}, bwerrors.Config(InetBindVar, "", bwerrors.ErrEmptyValue)
	}
	if len(s) > MaxNetworkLen {
		return BindSpec{}, bwerrors.Config(InetBindVar, s, bwerrors.ErrAddressTooLong)
	}

	spec := BindSpec{Kind: KindNetwork, Raw: s}
	col := strings.LastIndexByte(s, ':')
	brac := strings.LastIndexByte(s, ']')

	if col < 0 || brac > col {
		if brac >= 0 && s[0] == '[' {
			return BindSpec{}, &bwerrors.ConfigError{
				Field: InetBindVar,
				Value: s,
				Err:   bwerrors.ErrPortRequired,
				Hint:  "append :service to the bracketed address",
			}
		}
		spec.Service = s
		return spec, nil
	}

	host, service := s[:col], s[col+1:]
	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	if service == "" {
		return BindSpec{}, bwerrors.Config(InetBindVar, s, bwerrors.ErrPortRequired)
	}
	spec.Host = host
	spec.Service = service
	return spec, nil
}

// BindSpec derives the bind target from the configured variables.
func (c *Config) BindSpec() (BindSpec, error) {
	switch {
	case c.HasUnixBind && c.HasInetBind:
		return BindSpec{}, &bwerrors.ConfigError{
			Err:  bwerrors.ErrConflictingBind,
			Hint: "set only one of " + UnixBindVar + " or " + InetBindVar,
		}
	case c.HasUnixBind:
		return ParsePath(c.UnixBind)
	case c.HasInetBind:
		return ParseNetwork(c.InetBind)
	default:
		return BindSpec{}, &bwerrors.ConfigError{
			Err:  bwerrors.ErrNoBindTarget,
			Hint: "must specify " + UnixBindVar + " or " + InetBindVar,
		}
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if _, err := c.BindSpec(); err != nil {
		return err
	}
	if len(c.Command) == 0 || c.Command[0] == "" {
		return &bwerrors.ConfigError{
			Err:  bwerrors.ErrNoCommand,
			Hint: "usage: bindwrap [options] WORKER [ARGS...]",
		}
	}
	if c.Verbose < 0 {
		return fmt.Errorf("verbosity must not be negative")
	}
	return nil
}
