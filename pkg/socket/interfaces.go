package socket

import (
	"net/netip"

	"github.com/lteconn/lteconn-go/pkg/cancel"
)

// Receiver performs a single bounded, cancellable receive.
type Receiver interface {
	// Receive reads at most len(buf) bytes into buf. It blocks until at least
	// one byte is available, the token is cancelled, or an error occurs.
	// It returns cancel.ErrCancelled when aborted through tok.
	Receive(buf []byte, tok *cancel.Token) (int, error)
}

// Sender performs a single bounded, cancellable write.
type Sender interface {
	// Write writes at most len(buf) bytes and reports how many were accepted.
	// It returns cancel.ErrCancelled when aborted through tok before any byte
	// was handed to the transport.
	Write(buf []byte, tok *cancel.Token) (int, error)
}

// Handle is an owned transport capability that can carry I/O and be released.
// Both a whole Socket and each half of a split Socket are Handles.
type Handle interface {
	Receiver
	Sender

	// Deactivate releases the capability. It is the explicit teardown path
	// and does not wait for the peer to acknowledge the close.
	Deactivate() error

	// Close releases the capability like Deactivate and additionally waits
	// until the transport confirms the release. It backs the fallback
	// cleanup path and may block.
	Close() error

	// RawFD returns the underlying descriptor, or -1 if there is none.
	RawFD() int32
}

// Socket is a transport capability before it has been split.
type Socket interface {
	Handle

	// SetOption configures the socket. Options must be set before Connect.
	SetOption(opt Option) error

	// Connect performs the connection and encrypted handshake.
	Connect(addr netip.AddrPort, tok *cancel.Token) error

	// Split decomposes the socket into a read-only and a write-only handle.
	// After a successful Split the Socket itself must no longer be used.
	Split() (read Handle, write Handle, err error)
}

// Factory allocates sockets.
type Factory interface {
	// Create allocates a new, unconnected socket.
	Create(family Family, typ Type, proto Protocol) (Socket, error)
}

// FamilyOf returns the address family of addr.
func FamilyOf(addr netip.AddrPort) Family {
	if addr.Addr().Unmap().Is4() {
		return FamilyIPv4
	}
	return FamilyIPv6
}
