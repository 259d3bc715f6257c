package core

import (
	"context"
	"strings"

	"bindwrap/config"
	"bindwrap/internal/bind"
	"bindwrap/util"
)

// listen runs Resolve → Prepare → Listen → Install.  On failure nothing is
// left open and no socket path remains.
func listen(ctx context.Context, spec config.BindSpec, policy bind.Policy, slot int, logger *util.Logger) (*bind.Socket, error) {
	cands, err := bind.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}
	logger.Debug("candidates for %s: %s", spec.Raw, joinCandidates(cands))

	sock, err := bind.Prepare(spec, cands, policy)
	if err != nil {
		return nil, err
	}
	if err := sock.Listen(); err != nil {
		sock.Discard()
		return nil, err
	}
	if err := bind.Install(sock, slot); err != nil {
		sock.Discard()
		return nil, err
	}

	if sa, err := sock.Addr(); err == nil {
		logger.Verbose("listening on %s %s (fd %d)",
			util.FamilyName(sock.Family()), util.FormatSockaddr(sa), sock.FD())
	}
	return sock, nil
}

func joinCandidates(cands []bind.Candidate) string {
	parts := make([]string, len(cands))
	for i, c := range cands {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
