package bind

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"bindwrap/config"
	bwerrors "bindwrap/internal/errors"
)

type fakeResolver struct {
	addrs   []net.IPAddr
	port    int
	hostErr error
	portErr error
}

func (f *fakeResolver) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) {
	return f.addrs, f.hostErr
}

func (f *fakeResolver) LookupPort(context.Context, string, string) (int, error) {
	return f.port, f.portErr
}

func socketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "s.sock")
}

func TestResolve_Path(t *testing.T) {
	spec, err := config.ParsePath("/run/app.sock")
	require.NoError(t, err)

	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, unix.AF_UNIX, cands[0].Family)
	assert.Equal(t, "/run/app.sock", cands[0].Addr.(*unix.SockaddrUnix).Name)
}

func TestResolve_WildcardOrder(t *testing.T) {
	spec, err := config.ParseNetwork("9000")
	require.NoError(t, err)

	cands, err := ResolveWith(context.Background(), &fakeResolver{port: 9000}, spec)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, unix.AF_INET, cands[0].Family)
	assert.Equal(t, unix.AF_INET6, cands[1].Family)
	assert.Equal(t, 9000, cands[0].Addr.(*unix.SockaddrInet4).Port)
	assert.Equal(t, 9000, cands[1].Addr.(*unix.SockaddrInet6).Port)
}

func TestResolve_MappedIPv4BindsAsIPv4(t *testing.T) {
	spec, err := config.ParseNetwork("example.test:80")
	require.NoError(t, err)

	r := &fakeResolver{
		port: 80,
		addrs: []net.IPAddr{
			{IP: net.ParseIP("::ffff:10.0.0.7")},
			{IP: net.ParseIP("2001:db8::7")},
		},
	}
	cands, err := ResolveWith(context.Background(), r, spec)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	v4, ok := cands[0].Addr.(*unix.SockaddrInet4)
	require.True(t, ok, "mapped address should become SockaddrInet4")
	assert.Equal(t, [4]byte{10, 0, 0, 7}, v4.Addr)
	assert.Equal(t, unix.AF_INET6, cands[1].Family)
}

func TestResolve_Errors(t *testing.T) {
	spec, err := config.ParseNetwork("nowhere.test:80")
	require.NoError(t, err)
	lookupErr := errors.New("no such host")

	tests := []struct {
		name string
		r    *fakeResolver
		want error
	}{
		{"host lookup", &fakeResolver{hostErr: lookupErr}, lookupErr},
		{"service lookup", &fakeResolver{portErr: lookupErr}, lookupErr},
		{"empty result", &fakeResolver{}, bwerrors.ErrNoAddresses},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveWith(context.Background(), tt.r, spec)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var re *bwerrors.ResolveError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "nowhere.test:80", re.Input)
		})
	}
}

func TestResolve_LiteralLoopback(t *testing.T) {
	spec, err := config.ParseNetwork("127.0.0.1:0")
	require.NoError(t, err)

	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "PF_INET 127.0.0.1:0", cands[0].String())
}

func TestPrepare_PathPermissions(t *testing.T) {
	tests := []struct {
		name  string
		trust bool
		want  os.FileMode
	}{
		{"private", false, 0o700},
		{"trusted", true, 0o777},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := config.ParsePath(socketPath(t))
			require.NoError(t, err)
			cands, err := Resolve(context.Background(), spec)
			require.NoError(t, err)

			sock, err := Prepare(spec, cands, Policy{TrustPeers: tt.trust})
			require.NoError(t, err)
			t.Cleanup(sock.Discard)

			info, err := os.Stat(spec.Path)
			require.NoError(t, err)
			assert.True(t, info.Mode()&os.ModeSocket != 0, "path should be a socket")
			assert.Equal(t, tt.want, info.Mode().Perm())
			assert.Equal(t, StateBound, sock.State())
		})
	}
}

func TestPrepare_PathListenAndConnect(t *testing.T) {
	spec, err := config.ParsePath(socketPath(t))
	require.NoError(t, err)
	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)

	sock, err := Prepare(spec, cands, Policy{})
	require.NoError(t, err)
	t.Cleanup(sock.Discard)
	require.NoError(t, sock.Listen())
	assert.Equal(t, StateListening, sock.State())

	conn, err := net.Dial("unix", spec.Path)
	require.NoError(t, err)
	conn.Close()

	sa, err := sock.Addr()
	require.NoError(t, err)
	assert.Equal(t, spec.Path, sa.(*unix.SockaddrUnix).Name)
}

func TestPrepare_EphemeralTCP(t *testing.T) {
	spec, err := config.ParseNetwork("127.0.0.1:0")
	require.NoError(t, err)
	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)

	sock, err := Prepare(spec, cands, Policy{})
	require.NoError(t, err)
	defer sock.Close()
	require.NoError(t, sock.Listen())

	sa, err := sock.Addr()
	require.NoError(t, err)
	port := sa.(*unix.SockaddrInet4).Port
	assert.NotZero(t, port, "an ephemeral port should have been assigned")

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	conn.Close()
}

func TestPrepare_FirstSuccessWins(t *testing.T) {
	spec := config.BindSpec{Kind: config.KindNetwork, Raw: "test"}
	cands := []Candidate{
		// TEST-NET-1 is never assigned locally.
		{Family: unix.AF_INET, Addr: &unix.SockaddrInet4{Addr: [4]byte{192, 0, 2, 1}}},
		{Family: unix.AF_INET, Addr: &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}},
		{Family: unix.AF_INET, Addr: &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}},
	}
	sock, err := Prepare(spec, cands, Policy{})
	require.NoError(t, err)
	defer sock.Close()

	sa, err := sock.Addr()
	require.NoError(t, err)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, sa.(*unix.SockaddrInet4).Addr)
}

func TestPrepare_BindErrorKeepsErrno(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "s.sock")
	spec, err := config.ParsePath(path)
	require.NoError(t, err)
	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)

	_, err = Prepare(spec, cands, Policy{})
	require.Error(t, err)

	var se *bwerrors.SocketError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bind", se.Op)
	assert.Equal(t, "PF_UNIX", se.Family)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestPrepare_PathInUse(t *testing.T) {
	spec, err := config.ParsePath(socketPath(t))
	require.NoError(t, err)
	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)

	first, err := Prepare(spec, cands, Policy{})
	require.NoError(t, err)
	t.Cleanup(first.Discard)

	_, err = Prepare(spec, cands, Policy{})
	assert.ErrorIs(t, err, unix.EADDRINUSE)
}

func TestPrepare_AllFailReportsLastFamily(t *testing.T) {
	spec := config.BindSpec{Kind: config.KindNetwork, Raw: "test"}
	cands := []Candidate{
		{Family: unix.AF_INET, Addr: &unix.SockaddrInet4{Addr: [4]byte{192, 0, 2, 1}}},
		{Family: unix.AF_INET6, Addr: &unix.SockaddrInet6{Addr: [16]byte{0x20, 0x01, 0x0d, 0xb8, 15: 1}}},
	}
	_, err := Prepare(spec, cands, Policy{})
	require.Error(t, err)

	var se *bwerrors.SocketError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PF_INET6", se.Family)
}

func TestPrepare_NoCandidates(t *testing.T) {
	_, err := Prepare(config.BindSpec{Raw: "x"}, nil, Policy{})
	assert.ErrorIs(t, err, bwerrors.ErrNoAddresses)
}

func TestInstall(t *testing.T) {
	const slot = 100

	spec, err := config.ParseNetwork("127.0.0.1:0")
	require.NoError(t, err)
	cands, err := Resolve(context.Background(), spec)
	require.NoError(t, err)
	sock, err := Prepare(spec, cands, Policy{})
	require.NoError(t, err)
	require.NoError(t, sock.Listen())
	t.Cleanup(func() { sock.Close() })

	orig := sock.FD()
	require.NotEqual(t, slot, orig)
	require.NoError(t, Install(sock, slot))
	assert.Equal(t, slot, sock.FD())

	_, err = unix.FcntlInt(uintptr(orig), unix.F_GETFD, 0)
	assert.ErrorIs(t, err, unix.EBADF, "original descriptor should be closed")

	flags, err := unix.FcntlInt(uintptr(slot), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.Zero(t, flags&unix.FD_CLOEXEC, "installed descriptor must survive exec")

	_, err = unix.Getsockname(slot)
	require.NoError(t, err)

	// Already in place: no-op apart from close-on-exec.
	_, err = unix.FcntlInt(uintptr(slot), unix.F_SETFD, unix.FD_CLOEXEC)
	require.NoError(t, err)
	require.NoError(t, Install(sock, slot))
	assert.Equal(t, slot, sock.FD())
	flags, err = unix.FcntlInt(uintptr(slot), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.Zero(t, flags&unix.FD_CLOEXEC)
}

func TestInstall_BadSlot(t *testing.T) {
	spec := config.BindSpec{Kind: config.KindNetwork, Raw: "x"}
	sock, err := Prepare(spec, []Candidate{{Family: unix.AF_INET, Addr: &unix.SockaddrInet4{}}}, Policy{})
	require.NoError(t, err)
	defer sock.Close()

	err = Install(sock, -1)
	var ie *bwerrors.InstallError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, -1, ie.Slot)
}

func TestPolicy_PathMode(t *testing.T) {
	assert.Equal(t, os.FileMode(0o777), Policy{TrustPeers: true}.PathMode())
	assert.Equal(t, os.FileMode(0o700), Policy{}.PathMode())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unbound", State(0).String())
	assert.Equal(t, "bound", StateBound.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "closed", StateClosed.String())
}
