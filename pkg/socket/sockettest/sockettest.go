// Package sockettest provides a scripted in-memory socket.Factory for
// exercising code built on package socket without a network.
package sockettest

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

// Script describes how one created socket behaves. The zero value is a
// socket that connects, accepts every write and blocks on receive until
// cancelled.
type Script struct {
	// CreateErr fails the Create call that would produce this socket.
	CreateErr error

	// OptionErr is returned by every SetOption call.
	OptionErr error

	// ConnectErr is returned by Connect.
	ConnectErr error

	// BlockConnect makes Connect wait for the token before returning
	// cancel.ErrCancelled.
	BlockConnect bool

	// DeactivateErr is returned by Deactivate (the socket is still marked
	// deactivated).
	DeactivateErr error

	// SplitErr is returned by Split.
	SplitErr error

	// Incoming is the byte stream served by Receive.
	Incoming []byte

	// MaxReceive caps the bytes returned per Receive. Zero means len(buf).
	MaxReceive int

	// ReceiveErr is returned once Incoming is drained. Nil means Receive
	// blocks until the token is cancelled.
	ReceiveErr error

	// MaxWrite caps the bytes accepted per Write. Zero means len(buf).
	MaxWrite int

	// WriteErr is returned once WriteErrAfter bytes have been accepted.
	WriteErr      error
	WriteErrAfter int

	// BeforeWrite, if set, runs before each Write with the call index.
	BeforeWrite func(call int)

	// FD is the reported descriptor. Zero assigns one from the factory.
	FD int32
}

// Factory is a scripted socket.Factory. Scripts are consumed in Create
// order; once exhausted, sockets use the zero Script.
type Factory struct {
	mu      sync.Mutex
	scripts []Script
	sockets []*Socket
	calls   []string
	nextFD  int32
}

// NewFactory returns a factory that hands out sockets following scripts.
func NewFactory(scripts ...Script) *Factory {
	return &Factory{scripts: scripts, nextFD: 3}
}

// Create implements socket.Factory.
func (f *Factory) Create(family socket.Family, typ socket.Type, proto socket.Protocol) (socket.Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	index := len(f.sockets)
	var script Script
	if index < len(f.scripts) {
		script = f.scripts[index]
	}

	f.calls = append(f.calls, fmt.Sprintf("create %d %s", index, family))
	if script.CreateErr != nil {
		// Reserve the index so later scripts stay aligned.
		f.sockets = append(f.sockets, nil)
		return nil, script.CreateErr
	}

	fd := script.FD
	if fd == 0 {
		fd = f.nextFD
		f.nextFD++
	}

	s := &Socket{
		f:        f,
		index:    index,
		script:   script,
		fd:       fd,
		Family:   family,
		Type:     typ,
		Protocol: proto,
		incoming: append([]byte(nil), script.Incoming...),
	}
	f.sockets = append(f.sockets, s)
	return s, nil
}

// Sockets returns the sockets created so far. Entries for failed Create
// calls are nil.
func (f *Factory) Sockets() []*Socket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Socket(nil), f.sockets...)
}

// Socket returns the i-th created socket.
func (f *Factory) Socket(i int) *Socket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sockets[i]
}

// Calls returns a transcript of lifecycle calls across all sockets, e.g.
// "create 0 IPv4", "connect 0 192.0.2.1:443", "deactivate 0".
func (f *Factory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Factory) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

var _ socket.Factory = (*Factory)(nil)

// Socket is a scripted socket.Socket. All methods are safe for concurrent
// use; receive and write state are guarded separately so a blocked Receive
// does not stall a Write.
type Socket struct {
	f      *Factory
	index  int
	script Script
	fd     int32

	Family   socket.Family
	Type     socket.Type
	Protocol socket.Protocol

	mu            sync.Mutex
	options       []socket.Option
	connectAddr   netip.AddrPort
	connected     bool
	deactivations int
	closes        int
	split         bool
	halves        [2]*Half

	rmu          sync.Mutex
	incoming     []byte
	receiveSizes []int

	wmu        sync.Mutex
	written    []byte
	writeSizes []int
	writeCalls int
}

// SetOption implements socket.Socket.
func (s *Socket) SetOption(opt socket.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = append(s.options, opt)
	if s.script.OptionErr != nil {
		return &socket.Error{Op: "set_option", FD: s.fd, Err: s.script.OptionErr}
	}
	return nil
}

// Connect implements socket.Socket.
func (s *Socket) Connect(addr netip.AddrPort, tok *cancel.Token) error {
	s.f.record("connect %d %s", s.index, addr)

	s.mu.Lock()
	s.connectAddr = addr
	s.mu.Unlock()

	if err := tok.Err(); err != nil {
		return err
	}
	if s.script.BlockConnect {
		<-tok.Done()
		return cancel.ErrCancelled
	}
	if s.script.ConnectErr != nil {
		return &socket.Error{Op: "connect", FD: s.fd, Err: s.script.ConnectErr}
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Receive implements socket.Receiver.
func (s *Socket) Receive(buf []byte, tok *cancel.Token) (int, error) {
	if err := tok.Err(); err != nil {
		return 0, err
	}

	s.rmu.Lock()
	s.receiveSizes = append(s.receiveSizes, len(buf))
	if len(s.incoming) > 0 {
		n := len(buf)
		if s.script.MaxReceive > 0 && n > s.script.MaxReceive {
			n = s.script.MaxReceive
		}
		n = copy(buf[:n], s.incoming)
		s.incoming = s.incoming[n:]
		s.rmu.Unlock()
		return n, nil
	}
	s.rmu.Unlock()

	if s.script.ReceiveErr != nil {
		return 0, &socket.Error{Op: "receive", FD: s.fd, Err: s.script.ReceiveErr}
	}
	<-tok.Done()
	return 0, cancel.ErrCancelled
}

// Write implements socket.Sender.
func (s *Socket) Write(buf []byte, tok *cancel.Token) (int, error) {
	s.wmu.Lock()
	call := s.writeCalls
	s.writeCalls++
	s.wmu.Unlock()

	if s.script.BeforeWrite != nil {
		s.script.BeforeWrite(call)
	}
	if err := tok.Err(); err != nil {
		return 0, err
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.writeSizes = append(s.writeSizes, len(buf))
	n := len(buf)
	if s.script.MaxWrite > 0 && n > s.script.MaxWrite {
		n = s.script.MaxWrite
	}
	if s.script.WriteErr != nil {
		room := s.script.WriteErrAfter - len(s.written)
		if room <= 0 {
			return 0, &socket.Error{Op: "write", FD: s.fd, Err: s.script.WriteErr}
		}
		n = min(n, room)
	}
	s.written = append(s.written, buf[:n]...)
	return n, nil
}

// Deactivate implements socket.Handle.
func (s *Socket) Deactivate() error {
	s.f.record("deactivate %d", s.index)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivations++
	if s.script.DeactivateErr != nil {
		return &socket.Error{Op: "deactivate", FD: s.fd, Err: s.script.DeactivateErr}
	}
	return nil
}

// Close implements socket.Handle.
func (s *Socket) Close() error {
	s.f.record("close %d", s.index)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// RawFD implements socket.Handle.
func (s *Socket) RawFD() int32 {
	return s.fd
}

// Split implements socket.Socket.
func (s *Socket) Split() (socket.Handle, socket.Handle, error) {
	s.f.record("split %d", s.index)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.script.SplitErr != nil {
		return nil, nil, &socket.Error{Op: "split", FD: s.fd, Err: s.script.SplitErr}
	}
	s.split = true
	s.halves = [2]*Half{
		{s: s, name: "read"},
		{s: s, name: "write", write: true},
	}
	return s.halves[0], s.halves[1], nil
}

// Options returns the options set so far, in order.
func (s *Socket) Options() []socket.Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]socket.Option(nil), s.options...)
}

// ConnectAddr returns the address passed to Connect.
func (s *Socket) ConnectAddr() netip.AddrPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectAddr
}

// Connected reports whether Connect succeeded.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Deactivations returns how often Deactivate was called on the socket
// itself (not its halves).
func (s *Socket) Deactivations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deactivations
}

// Closes returns how often Close was called on the socket itself.
func (s *Socket) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// IsSplit reports whether Split succeeded.
func (s *Socket) IsSplit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.split
}

// ReadHalf returns the read handle produced by Split, or nil.
func (s *Socket) ReadHalf() *Half {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halves[0]
}

// WriteHalf returns the write handle produced by Split, or nil.
func (s *Socket) WriteHalf() *Half {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halves[1]
}

// ReceiveSizes returns the buffer length of every Receive call.
func (s *Socket) ReceiveSizes() []int {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return append([]int(nil), s.receiveSizes...)
}

// WriteSizes returns the buffer length of every Write call that reached
// the transport.
func (s *Socket) WriteSizes() []int {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return append([]int(nil), s.writeSizes...)
}

// Written returns every byte accepted by Write.
func (s *Socket) Written() []byte {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return append([]byte(nil), s.written...)
}

var _ socket.Socket = (*Socket)(nil)

// Half is one direction of a split Socket.
type Half struct {
	s     *Socket
	name  string
	write bool

	mu            sync.Mutex
	deactivations int
	closes        int
}

// Receive implements socket.Receiver. It fails on the write half.
func (h *Half) Receive(buf []byte, tok *cancel.Token) (int, error) {
	if h.write {
		return 0, &socket.Error{Op: "receive", FD: h.s.fd, Err: socket.ErrWrongDirection}
	}
	return h.s.Receive(buf, tok)
}

// Write implements socket.Sender. It fails on the read half.
func (h *Half) Write(buf []byte, tok *cancel.Token) (int, error) {
	if !h.write {
		return 0, &socket.Error{Op: "write", FD: h.s.fd, Err: socket.ErrWrongDirection}
	}
	return h.s.Write(buf, tok)
}

// Deactivate implements socket.Handle.
func (h *Half) Deactivate() error {
	h.s.f.record("deactivate %d %s", h.s.index, h.name)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deactivations++
	return nil
}

// Close implements socket.Handle.
func (h *Half) Close() error {
	h.s.f.record("close %d %s", h.s.index, h.name)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes++
	return nil
}

// RawFD implements socket.Handle.
func (h *Half) RawFD() int32 {
	return h.s.fd
}

// Deactivations returns how often Deactivate was called on this half.
func (h *Half) Deactivations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.deactivations
}

// Closes returns how often Close was called on this half.
func (h *Half) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

var _ socket.Handle = (*Half)(nil)
