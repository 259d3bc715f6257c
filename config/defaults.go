package config

import "golang.org/x/sys/unix"

// ── Environment contract ─────────────────────────────────────────────
//
// The three FASTCGI4J_* names are shared with the worker runtime and are
// not configurable.

const (
	// UnixBindVar names the filesystem path to bind a local socket at.
	UnixBindVar = "FASTCGI4J_UNIX_BIND"

	// InetBindVar names a [host]:service, host:service or service to bind
	// a TCP socket at.
	InetBindVar = "FASTCGI4J_INET_BIND"

	// PeerAddrsVar lists the web servers allowed to connect.  Only its
	// presence matters to bindwrap.
	PeerAddrsVar = "FASTCGI4J_WEB_SERVER_ADDRS"

	// VerboseVar sets bindwrap's own log verbosity.
	VerboseVar = "BINDWRAP_VERBOSE"
)

// ── Default values ───────────────────────────────────────────────────

const (
	// ListenBacklog is the queue length passed to listen(2).
	ListenBacklog = 5

	// ListenSlot is the descriptor a FastCGI worker expects its listening
	// socket on.
	ListenSlot = 0

	// MaxNetworkLen bounds the network bind string.
	MaxNetworkLen = 255

	// TrustedPathMode is applied to the socket path when the worker will
	// authenticate peers itself.
	TrustedPathMode = 0o777

	// PrivatePathMode is applied to the socket path otherwise.
	PrivatePathMode = 0o700

	// ExitFailure is returned for every setup, supervision or launch error.
	ExitFailure = 1

	// ExitSignalBase is added to the signal number when the worker was
	// killed by a signal.
	ExitSignalBase = 128
)

// MaxPathLen is the longest socket path that fits sun_path together with
// its terminating NUL.
var MaxPathLen = len(unix.RawSockaddrUnix{}.Path) - 1
