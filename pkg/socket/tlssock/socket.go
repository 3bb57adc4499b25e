package tlssock

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

type socketState uint8

const (
	stateCreated socketState = iota
	stateConnected
	stateSplit
	stateDeactivated
)

// Socket is a TLS client socket.
type Socket struct {
	f      *Factory
	family socket.Family
	c      *conn

	mu    sync.Mutex
	state socketState
	opts  options
}

// SetOption implements socket.Socket.
func (s *Socket) SetOption(opt socket.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateConnected:
		return &socket.Error{Op: "set_option", FD: s.c.fd, Err: socket.ErrAlreadyConnected}
	case stateSplit, stateDeactivated:
		return &socket.Error{Op: "set_option", FD: s.c.fd, Err: socket.ErrDeactivated}
	}

	if err := s.opts.apply(opt); err != nil {
		return &socket.Error{Op: "set_option", FD: s.c.fd, Err: err}
	}
	return nil
}

// Connect implements socket.Socket. It dials addr and performs the TLS
// handshake; a cancelled token aborts either step.
func (s *Socket) Connect(addr netip.AddrPort, tok *cancel.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateConnected:
		return &socket.Error{Op: "connect", FD: s.c.fd, Err: socket.ErrAlreadyConnected}
	case stateSplit, stateDeactivated:
		return &socket.Error{Op: "connect", FD: s.c.fd, Err: socket.ErrDeactivated}
	}
	if err := tok.Err(); err != nil {
		return err
	}
	if socket.FamilyOf(addr) != s.family {
		return &socket.Error{
			Op:  "connect",
			FD:  -1,
			Err: fmt.Errorf("%w: %s address on %s socket", socket.ErrUnsupported, socket.FamilyOf(addr), s.family),
		}
	}

	serverName := s.f.ServerName
	if serverName == "" {
		serverName = addr.Addr().String()
	}
	tlsConf, err := clientTLSConfig(s.opts, serverName, s.f.Credentials, s.f.sessionCache(), func(err error) {
		s.c.logError("verify_optional", err)
	})
	if err != nil {
		return &socket.Error{Op: "connect", FD: -1, Err: err}
	}

	ctx := tok.Context()
	raw, err := s.f.dialer().DialContext(ctx, s.family.Network(), addr.String())
	if err != nil {
		return connectErr(tok, err)
	}

	tlsConn := tls.Client(raw, tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return connectErr(tok, err)
	}

	s.c.attach(tlsConn, raw, addr)
	s.state = stateConnected
	s.c.logState("CONNECTED", tls.VersionName(tlsConn.ConnectionState().Version))
	return nil
}

func connectErr(tok *cancel.Token, err error) error {
	if tok.IsCancelled() {
		return cancel.ErrCancelled
	}
	return socket.Wrap("connect", -1, err)
}

// usable returns the shared connection if the socket may still carry I/O.
func (s *Socket) usable(op string) (*conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateCreated:
		return nil, &socket.Error{Op: op, FD: -1, Err: socket.ErrNotConnected}
	case stateSplit, stateDeactivated:
		return nil, &socket.Error{Op: op, FD: s.c.fd, Err: socket.ErrDeactivated}
	}
	return s.c, nil
}

// Receive implements socket.Receiver.
func (s *Socket) Receive(buf []byte, tok *cancel.Token) (int, error) {
	c, err := s.usable("receive")
	if err != nil {
		return 0, err
	}
	return c.receive(buf, tok)
}

// Write implements socket.Sender.
func (s *Socket) Write(buf []byte, tok *cancel.Token) (int, error) {
	c, err := s.usable("write")
	if err != nil {
		return 0, err
	}
	return c.write(buf, tok)
}

// Split implements socket.Socket. The halves share the TLS connection; it is
// closed once both are released.
func (s *Socket) Split() (socket.Handle, socket.Handle, error) {
	c, err := s.usable("split")
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.state = stateSplit
	s.mu.Unlock()

	// The socket's reference passes to the read half.
	c.addRef()
	c.logState("SPLIT", "")
	return &half{c: c}, &half{c: c, write: true}, nil
}

// Deactivate implements socket.Handle. It closes the connection without
// waiting for the peer.
func (s *Socket) Deactivate() error {
	return s.release(false)
}

// Close implements socket.Handle. It sends close_notify and waits up to the
// factory's close timeout for the peer to close its side.
func (s *Socket) Close() error {
	return s.release(true)
}

func (s *Socket) release(graceful bool) error {
	op := "deactivate"
	if graceful {
		op = "close"
	}

	s.mu.Lock()
	switch s.state {
	case stateSplit, stateDeactivated:
		s.mu.Unlock()
		return &socket.Error{Op: op, FD: s.c.fd, Err: socket.ErrDeactivated}
	}
	s.state = stateDeactivated
	s.mu.Unlock()

	err := s.c.release(graceful)
	if err != nil {
		s.c.logError(op, err)
	}
	s.c.logState("DEACTIVATED", op)
	return socket.Wrap(op, s.c.fd, err)
}

// RawFD implements socket.Handle.
func (s *Socket) RawFD() int32 {
	return s.c.fd
}

var _ socket.Socket = (*Socket)(nil)

// half is one direction of a split socket.
type half struct {
	c        *conn
	write    bool
	released atomic.Bool
}

func (h *half) name() string {
	if h.write {
		return "write half"
	}
	return "read half"
}

// Receive implements socket.Receiver.
func (h *half) Receive(buf []byte, tok *cancel.Token) (int, error) {
	if h.write {
		return 0, &socket.Error{Op: "receive", FD: h.c.fd, Err: socket.ErrWrongDirection}
	}
	if h.released.Load() {
		return 0, &socket.Error{Op: "receive", FD: h.c.fd, Err: socket.ErrDeactivated}
	}
	return h.c.receive(buf, tok)
}

// Write implements socket.Sender.
func (h *half) Write(buf []byte, tok *cancel.Token) (int, error) {
	if !h.write {
		return 0, &socket.Error{Op: "write", FD: h.c.fd, Err: socket.ErrWrongDirection}
	}
	if h.released.Load() {
		return 0, &socket.Error{Op: "write", FD: h.c.fd, Err: socket.ErrDeactivated}
	}
	return h.c.write(buf, tok)
}

// Deactivate implements socket.Handle. Releasing the write half shuts down
// the sending direction only; the read half keeps receiving.
func (h *half) Deactivate() error {
	return h.release(false)
}

// Close implements socket.Handle. Closing the read half additionally drains
// the connection until the peer closes it.
func (h *half) Close() error {
	return h.release(true)
}

func (h *half) release(graceful bool) error {
	op := "deactivate"
	if graceful {
		op = "close"
	}
	if !h.released.CompareAndSwap(false, true) {
		return &socket.Error{Op: op, FD: h.c.fd, Err: socket.ErrDeactivated}
	}

	var errs []error
	if h.write {
		if err := h.c.shutdownWrite(); err != nil {
			errs = append(errs, err)
		}
	} else if graceful {
		if err := h.c.drain(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := h.c.release(graceful); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		h.c.logError(op, err)
	}
	h.c.logState("DEACTIVATED", h.name())
	return socket.Wrap(op, h.c.fd, err)
}

// RawFD implements socket.Handle.
func (h *half) RawFD() int32 {
	return h.c.fd
}

var _ socket.Handle = (*half)(nil)
