package tlsstream

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/log/logtest"
	"github.com/lteconn/lteconn-go/pkg/resolve"
	"github.com/lteconn/lteconn-go/pkg/socket"
	"github.com/lteconn/lteconn-go/pkg/socket/sockettest"
)

func TestConnectSetsOptionsInOrder(t *testing.T) {
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA})

	s, err := env.dialer.Connect("device:443", PeerVerificationOptional, []uint32{42, 7})
	require.NoError(t, err)
	defer s.Deactivate()

	sock := env.factory.Socket(0)
	assert.Equal(t, socket.FamilyIPv4, sock.Family)
	assert.Equal(t, socket.TypeStream, sock.Type)
	assert.Equal(t, socket.ProtocolTLS12, sock.Protocol)
	assert.Equal(t, []socket.Option{
		socket.PeerVerify(1),
		socket.SessionCache(false),
		socket.TagList([]uint32{42, 7}),
	}, sock.Options())
	assert.Equal(t, addrA, sock.ConnectAddr())
	assert.Equal(t, addrA, s.RemoteAddr())
	env.radio.AssertExpectations(t)
}

func TestConnectFirstSuccessfulCandidateWins(t *testing.T) {
	boom := errors.New("handshake failed")
	candidates := []netip.AddrPort{addrA, addrB, addrC}

	for k := range candidates {
		t.Run(candidates[k].String(), func(t *testing.T) {
			scripts := make([]sockettest.Script, k)
			for i := range scripts {
				scripts[i] = sockettest.Script{ConnectErr: boom}
			}
			env := newEnv(t, healthyRadio(), candidates, scripts...)

			s, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
			require.NoError(t, err)

			sockets := env.factory.Sockets()
			require.Len(t, sockets, k+1, "remaining candidates must not be tried")
			for i := 0; i < k; i++ {
				assert.Equal(t, 1, sockets[i].Deactivations(), "failed socket %d", i)
			}
			assert.Equal(t, 0, sockets[k].Deactivations())
			assert.Equal(t, sockets[k].RawFD(), s.RawFD())
			assert.Equal(t, candidates[k], sockets[k].ConnectAddr())

			// The link went down exactly once, right after the connect.
			env.radio.AssertExpectations(t)
			assert.Equal(t, link.StateInactive, env.link.State())
			assert.Equal(t, 0, env.link.Refs())

			require.NoError(t, s.Deactivate())
		})
	}
}

func TestConnectAllCandidatesFail(t *testing.T) {
	errA := errors.New("refused")
	errB := errors.New("timeout")
	errC := errors.New("bad certificate")
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA, addrB, addrC},
		sockettest.Script{ConnectErr: errA},
		sockettest.Script{ConnectErr: errB},
		sockettest.Script{ConnectErr: errC},
	)

	s, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	require.Error(t, err)
	assert.Nil(t, s)

	assert.ErrorIs(t, err, errC)
	assert.NotErrorIs(t, err, errA)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, addrA, exhausted.Attempts[0].Addr)
	assert.ErrorIs(t, exhausted.Attempts[0], errA)
	assert.ErrorIs(t, exhausted.Attempts[1], errB)
	assert.Contains(t, err.Error(), "all 3 candidates failed")

	var se *socket.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "connect", se.Op)

	for i, sock := range env.factory.Sockets() {
		assert.Equal(t, 1, sock.Deactivations(), "socket %d", i)
	}
	env.radio.AssertExpectations(t)
	assert.Equal(t, 0, env.link.Refs())
}

func TestConnectSingleCandidateFailureMessage(t *testing.T) {
	boom := errors.New("refused")
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA}, sockettest.Script{ConnectErr: boom})

	_, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "connect failed")
}

func TestConnectSocketDeactivateFailureAborts(t *testing.T) {
	connectErr := errors.New("refused")
	deactivateErr := errors.New("modem busy")
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA, addrB},
		sockettest.Script{ConnectErr: connectErr, DeactivateErr: deactivateErr},
	)

	_, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	assert.ErrorIs(t, err, deactivateErr)
	assert.NotErrorIs(t, err, connectErr)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))

	assert.Len(t, env.factory.Sockets(), 1, "second candidate must not be tried")
	env.radio.AssertExpectations(t)
}

func TestConnectCreateFailureAborts(t *testing.T) {
	boom := errors.New("no free sockets")
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA, addrB},
		sockettest.Script{CreateErr: boom},
	)

	_, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, env.factory.Sockets(), 1)
	env.radio.AssertExpectations(t)
}

func TestConnectOptionFailureAborts(t *testing.T) {
	boom := errors.New("tag not provisioned")
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA, addrB},
		sockettest.Script{OptionErr: boom},
	)

	_, err := env.dialer.Connect("device:443", PeerVerificationEnabled, []uint32{9})
	assert.ErrorIs(t, err, boom)

	sockets := env.factory.Sockets()
	require.Len(t, sockets, 1)
	assert.Len(t, sockets[0].Options(), 1, "configuration stops at the first failing option")
	assert.Equal(t, 1, sockets[0].Deactivations())
	env.radio.AssertExpectations(t)
}

func TestConnectCancelledBeforeStart(t *testing.T) {
	radio := &stubRadio{}
	env := newEnv(t, radio, []netip.AddrPort{addrA})

	tok := cancel.New()
	tok.Cancel()

	_, err := env.dialer.ConnectWithCancellation("device:443", PeerVerificationEnabled, nil, tok)
	assert.ErrorIs(t, err, cancel.ErrCancelled)
	assert.Empty(t, env.factory.Sockets())
	radio.AssertNotCalled(t, "Activate", mock.Anything)
}

func TestConnectCancelledDuringAttempt(t *testing.T) {
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA, addrB},
		sockettest.Script{BlockConnect: true},
	)

	tok := cancel.New()
	stop := tok.CancelAfter(20 * time.Millisecond)
	defer stop()

	_, err := env.dialer.ConnectWithCancellation("device:443", PeerVerificationEnabled, nil, tok)
	assert.ErrorIs(t, err, cancel.ErrCancelled)

	sockets := env.factory.Sockets()
	require.Len(t, sockets, 1, "no attempt may start after cancellation")
	assert.Equal(t, 1, sockets[0].Deactivations())
	env.radio.AssertExpectations(t)
	assert.Equal(t, 0, env.link.Refs())
}

func TestConnectCancelledOnLastCandidate(t *testing.T) {
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA},
		sockettest.Script{BlockConnect: true},
	)

	tok := cancel.New()
	stop := tok.CancelAfter(10 * time.Millisecond)
	defer stop()

	_, err := env.dialer.ConnectWithCancellation("device:443", PeerVerificationEnabled, nil, tok)
	assert.ErrorIs(t, err, cancel.ErrCancelled)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	env.radio.AssertExpectations(t)
}

func TestConnectResolveFailureReleasesLink(t *testing.T) {
	res := &stubResolver{}
	res.On("Resolve", mock.Anything, "nowhere:443").Return(nil, resolve.ErrUnresolved)

	env := newEnv(t, healthyRadio(), nil)
	env.dialer.Resolver = res

	_, err := env.dialer.Connect("nowhere:443", PeerVerificationEnabled, nil)
	assert.ErrorIs(t, err, resolve.ErrUnresolved)
	assert.Empty(t, env.factory.Sockets())
	env.radio.AssertExpectations(t)
}

func TestConnectEmptyCandidatesPanics(t *testing.T) {
	res := &stubResolver{}
	res.On("Resolve", mock.Anything, "device:443").Return([]netip.AddrPort{}, nil)

	env := newEnv(t, healthyRadio(), nil)
	env.dialer.Resolver = res

	assert.PanicsWithValue(t, "BUG: resolver returned no candidates without an error", func() {
		_, _ = env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	})
	// The link is still released while unwinding.
	env.radio.AssertExpectations(t)
}

func TestConnectLinkActivationFailure(t *testing.T) {
	boom := errors.New("no coverage")
	radio := &stubRadio{}
	radio.On("Activate", mock.Anything).Return(boom).Once()
	radio.On("Deactivate", mock.Anything).Return(nil).Once()
	env := newEnv(t, radio, []netip.AddrPort{addrA})

	_, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	var le *link.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "activate", le.Op)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, env.factory.Sockets())
	radio.AssertExpectations(t)
}

func TestConnectLinkDeactivationFailureAfterSuccess(t *testing.T) {
	boom := errors.New("radio stuck")
	radio := &stubRadio{}
	radio.On("Activate", mock.Anything).Return(nil).Once()
	radio.On("Attached", mock.Anything).Return(true, nil).Once()
	radio.On("Deactivate", mock.Anything).Return(boom).Once()
	env := newEnv(t, radio, []netip.AddrPort{addrA})

	s, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	assert.Nil(t, s)
	var le *link.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "deactivate", le.Op)

	// The connected socket is not leaked.
	assert.Equal(t, 1, env.factory.Socket(0).Deactivations())
	radio.AssertExpectations(t)
}

func TestConnectLinkDeactivationFailureAfterExhaustion(t *testing.T) {
	linkErr := errors.New("radio stuck")
	radio := &stubRadio{}
	radio.On("Activate", mock.Anything).Return(nil).Once()
	radio.On("Attached", mock.Anything).Return(true, nil).Once()
	radio.On("Deactivate", mock.Anything).Return(linkErr).Once()
	env := newEnv(t, radio, []netip.AddrPort{addrA}, sockettest.Script{ConnectErr: errors.New("refused")})

	_, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	assert.ErrorIs(t, err, linkErr)
	radio.AssertExpectations(t)
}

func TestConnectLogsAttempts(t *testing.T) {
	rec := &logtest.Recorder{}
	env := newEnv(t, healthyRadio(), []netip.AddrPort{addrA, addrB},
		sockettest.Script{ConnectErr: errors.New("refused")},
	)
	env.dialer.Logger = rec

	s, err := env.dialer.Connect("device:443", PeerVerificationEnabled, nil)
	require.NoError(t, err)
	defer s.Deactivate()

	attempts := rec.ByCategory(log.CategoryAttempt)
	require.Len(t, attempts, 4)
	assert.Equal(t, log.AttemptStarted, attempts[0].Attempt.Outcome)
	assert.Equal(t, log.AttemptFailed, attempts[1].Attempt.Outcome)
	assert.Contains(t, attempts[1].Attempt.Error, "refused")
	assert.Equal(t, "IPv4", attempts[1].Attempt.Family)
	assert.Equal(t, 1, attempts[2].Attempt.Index)
	assert.Equal(t, "IPv6", attempts[2].Attempt.Family)
	assert.Equal(t, log.AttemptSucceeded, attempts[3].Attempt.Outcome)

	assert.Equal(t, []string{"CONNECTED"}, rec.StateChanges(log.StateEntityStream))
	states := rec.ByCategory(log.CategoryState)
	require.NotEmpty(t, states)
	assert.Equal(t, s.ID().String(), states[len(states)-1].ConnectionID)
}

func TestDialerDefaults(t *testing.T) {
	f := sockettest.NewFactory()
	d := &Dialer{Sockets: f}

	s, err := d.ConnectWithCancellation("192.0.2.9:8883", PeerVerificationDisabled, nil, cancel.FromContext(context.Background()))
	require.NoError(t, err)
	defer s.Deactivate()

	assert.Equal(t, netip.MustParseAddrPort("192.0.2.9:8883"), f.Socket(0).ConnectAddr())
	assert.Equal(t, link.StateInactive, d.Link.State())
}

func TestDialerWithoutFactoryPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = (&Dialer{}).Connect("192.0.2.9:8883", PeerVerificationEnabled, nil)
	})
}
