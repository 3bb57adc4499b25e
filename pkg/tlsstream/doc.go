// Package tlsstream provides a cancellable, split-capable TLS stream for a
// device whose network access goes through a managed physical link.
//
// A Dialer resolves an address into candidate socket addresses and tries
// them in order, keeping the link up for the whole attempt:
//
//	d := &tlsstream.Dialer{Sockets: factory, Link: manager}
//	s, err := d.Connect("broker.example.com:8883", tlsstream.PeerVerificationEnabled, []uint32{42})
//	if err != nil {
//		return err
//	}
//	defer s.Deactivate()
//
// All reads are bounded to ChunkSize bytes per transport call and all writes
// are split into chunks of at most ChunkSize bytes.
//
// # Halves
//
// Split returns a ReadHalf and a WriteHalf that borrow the stream and may be
// driven from two goroutines. SplitOwned consumes the stream and returns two
// halves that each own one direction of the transport and are released
// independently.
//
// # Teardown
//
// Deactivate releases the transport without waiting for the peer. A stream
// or owned half that becomes unreachable without being deactivated is closed
// on the runtime's cleanup goroutine; that path waits for the transport to
// confirm the close and may block for the transport's close timeout.
package tlsstream
