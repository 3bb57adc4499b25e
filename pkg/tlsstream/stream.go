package tlsstream

import (
	"net/netip"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

type streamState uint32

const (
	stateOpen streamState = iota
	stateConsumed
	stateDeactivated
)

// Stream is a connected TLS stream. It is created by a Dialer and owns one
// socket until it is deactivated or consumed by SplitOwned.
//
// Receive and Write may be called concurrently with each other, but not
// each with itself.
type Stream struct {
	reader
	writer

	ep    *endpoint
	sock  socket.Socket
	state atomic.Uint32
	guard runtime.Cleanup
}

func newStream(sock socket.Socket, remote netip.AddrPort, logger log.Logger) *Stream {
	s := &Stream{
		ep: &endpoint{
			id:     uuid.New(),
			remote: remote,
			fd:     sock.RawFD(),
			logger: logger,
		},
		sock: sock,
	}
	s.reader = reader{ep: s.ep, source: s.receiver, owner: s}
	s.writer = writer{ep: s.ep, source: s.sender, owner: s}
	s.guard = runtime.AddCleanup(s, closeLeaked, leaked{h: sock, ep: s.ep})
	return s
}

// ID returns the connection ID used in event logs.
func (s *Stream) ID() uuid.UUID {
	return s.ep.id
}

// RemoteAddr returns the address the stream is connected to.
func (s *Stream) RemoteAddr() netip.AddrPort {
	return s.ep.remote
}

// RawFD returns the transport descriptor. It does not change when the
// stream is split.
func (s *Stream) RawFD() int32 {
	return s.sock.RawFD()
}

func (s *Stream) usable() error {
	switch streamState(s.state.Load()) {
	case stateConsumed:
		return ErrStreamConsumed
	case stateDeactivated:
		return ErrDeactivated
	}
	return nil
}

func (s *Stream) receiver() (socket.Receiver, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	return s.sock, nil
}

func (s *Stream) sender() (socket.Sender, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	return s.sock, nil
}

// Split returns halves that borrow the stream. Nothing changes at the
// transport; the halves stop working once the stream is deactivated.
func (s *Stream) Split() (*ReadHalf, *WriteHalf) {
	return &ReadHalf{reader: s.reader, s: s}, &WriteHalf{writer: s.writer, s: s}
}

// SplitOwned consumes the stream and returns two halves that each own one
// direction of the transport. If the transport cannot split, the stream is
// left unchanged and remains usable.
func (s *Stream) SplitOwned() (*OwnedReadHalf, *OwnedWriteHalf, error) {
	if !s.state.CompareAndSwap(uint32(stateOpen), uint32(stateConsumed)) {
		return nil, nil, s.usable()
	}

	rh, wh, err := s.sock.Split()
	if err != nil {
		s.state.Store(uint32(stateOpen))
		s.ep.logError("split_owned", err)
		return nil, nil, err
	}

	// The halves now own the transport.
	s.guard.Stop()
	s.ep.logState("SPLIT", "owned")

	return newOwnedReadHalf(rh, s.ep), newOwnedWriteHalf(wh, s.ep), nil
}

// Deactivate releases the transport without waiting for the peer. It may be
// called once; later calls return ErrDeactivated.
func (s *Stream) Deactivate() error {
	if !s.state.CompareAndSwap(uint32(stateOpen), uint32(stateDeactivated)) {
		return s.usable()
	}
	s.guard.Stop()

	err := s.sock.Deactivate()
	if err != nil {
		s.ep.logError("deactivate", err)
	}
	s.ep.logState("DEACTIVATED", "explicit")
	return err
}

// ReadHalf is the receive side of a Stream, borrowed by Split.
type ReadHalf struct {
	reader
	s *Stream
}

// RawFD returns the stream's transport descriptor.
func (h *ReadHalf) RawFD() int32 {
	return h.s.RawFD()
}

// WriteHalf is the send side of a Stream, borrowed by Split.
type WriteHalf struct {
	writer
	s *Stream
}

// RawFD returns the stream's transport descriptor.
func (h *WriteHalf) RawFD() int32 {
	return h.s.RawFD()
}

// leaked is what the cleanup guard needs to release an abandoned transport.
// It must not reference the guarded value.
type leaked struct {
	h  socket.Handle
	ep *endpoint
}

// closeLeaked runs on the runtime cleanup goroutine and may block until the
// transport confirms the close.
func closeLeaked(l leaked) {
	if err := l.h.Close(); err != nil {
		l.ep.logError("cleanup", err)
	}
	l.ep.logState("DEACTIVATED", "cleanup")
}
