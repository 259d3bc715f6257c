package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"strconv"
	"strings"
)

// LookupFunc reports the value of an environment variable and whether it is
// set at all.  os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadFromEnv overlays environment variables onto cfg.  The bind variables
// are selected by presence: a variable set to the empty string still counts
// and is rejected later by BindSpec.  Call this BEFORE CLI flag parsing so
// that flags take precedence.
func LoadFromEnv(cfg *Config, lookup LookupFunc) {
	if v, ok := lookup(UnixBindVar); ok {
		cfg.UnixBind = v
		cfg.HasUnixBind = true
	}
	if v, ok := lookup(InetBindVar); ok {
		cfg.InetBind = v
		cfg.HasInetBind = true
	}
	if _, ok := lookup(PeerAddrsVar); ok {
		cfg.TrustPeers = true
	}
	if v := envInt(lookup, VerboseVar); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(lookup LookupFunc, key string) int {
	v, ok := lookup(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// MapLookup adapts a plain map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
