package tlsstream

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/resolve"
	"github.com/lteconn/lteconn-go/pkg/socket/sockettest"
)

// ---------------------------------------------------------------------------
// stubRadio
// ---------------------------------------------------------------------------

type stubRadio struct{ mock.Mock }

func (r *stubRadio) Activate(ctx context.Context) error {
	return r.Called(ctx).Error(0)
}

func (r *stubRadio) Attached(ctx context.Context) (bool, error) {
	ret := r.Called(ctx)
	return ret.Bool(0), ret.Error(1)
}

func (r *stubRadio) Deactivate(ctx context.Context) error {
	return r.Called(ctx).Error(0)
}

// healthyRadio expects exactly one activation and one deactivation.
func healthyRadio() *stubRadio {
	r := &stubRadio{}
	r.On("Activate", mock.Anything).Return(nil).Once()
	r.On("Attached", mock.Anything).Return(true, nil).Once()
	r.On("Deactivate", mock.Anything).Return(nil).Once()
	return r
}

// ---------------------------------------------------------------------------
// stubResolver
// ---------------------------------------------------------------------------

type stubResolver struct{ mock.Mock }

func (r *stubResolver) Resolve(ctx context.Context, address string) ([]netip.AddrPort, error) {
	ret := r.Called(ctx, address)
	addrs, _ := ret.Get(0).([]netip.AddrPort)
	return addrs, ret.Error(1)
}

var (
	addrA = netip.MustParseAddrPort("192.0.2.1:443")
	addrB = netip.MustParseAddrPort("[2001:db8::2]:443")
	addrC = netip.MustParseAddrPort("192.0.2.3:443")
)

type testEnv struct {
	radio   *stubRadio
	link    *link.Manager
	factory *sockettest.Factory
	dialer  *Dialer
}

func newEnv(t *testing.T, radio *stubRadio, addrs []netip.AddrPort, scripts ...sockettest.Script) *testEnv {
	t.Helper()
	m := link.NewManager(link.Config{
		Radio:   radio,
		Backoff: link.BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond},
	})
	f := sockettest.NewFactory(scripts...)
	return &testEnv{
		radio:   radio,
		link:    m,
		factory: f,
		dialer: &Dialer{
			Sockets:  f,
			Link:     m,
			Resolver: resolve.Static(addrs),
		},
	}
}

// connected returns a stream over a single scripted socket.
func connected(t *testing.T, script sockettest.Script) (*Stream, *sockettest.Socket) {
	t.Helper()
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA}, script)
	s, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	require.NoError(t, err)
	return s, env.factory.Socket(0)
}

// withLogger sets a logger on a stream created by connected.
func withLogger(s *Stream, l log.Logger) {
	s.ep.logger = l
}
