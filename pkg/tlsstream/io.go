package tlsstream

import (
	"io"
	"runtime"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

// ChunkSize is the largest transfer handed to the transport in one call.
const ChunkSize = 1024

// reader implements the receive side of the I/O contract for every stream
// shape. source returns the receiver to use or the reason there is none.
// owner is the value whose cleanup guards the receiver; it is kept
// reachable until the transfer returns.
type reader struct {
	ep     *endpoint
	source func() (socket.Receiver, error)
	owner  any
}

// Receive reads at most ChunkSize bytes into buf and returns the filled
// prefix. It blocks until at least one byte is available.
func (r reader) Receive(buf []byte) ([]byte, error) {
	return r.ReceiveWithCancellation(buf, cancel.Never())
}

// ReceiveWithCancellation is Receive aborted by tok.
func (r reader) ReceiveWithCancellation(buf []byte, tok *cancel.Token) ([]byte, error) {
	defer runtime.KeepAlive(r.owner)

	rx, err := r.source()
	if err != nil {
		return nil, err
	}
	n, err := r.receiveChunk(rx, buf, tok)
	if err != nil {
		r.ep.logError("receive", err)
		return nil, err
	}
	r.ep.logData(log.DirectionIn, buf[:n], 1)
	return buf[:n], nil
}

// ReceiveExact fills buf completely. On error it returns the prefix of buf
// filled so far together with the error.
func (r reader) ReceiveExact(buf []byte) ([]byte, error) {
	return r.ReceiveExactWithCancellation(buf, cancel.Never())
}

// ReceiveExactWithCancellation is ReceiveExact aborted by tok. The partial
// prefix is returned on cancellation as well.
func (r reader) ReceiveExactWithCancellation(buf []byte, tok *cancel.Token) ([]byte, error) {
	defer runtime.KeepAlive(r.owner)

	rx, err := r.source()
	if err != nil {
		return buf[:0], err
	}

	filled, chunks := 0, 0
	for filled < len(buf) {
		n, err := r.receiveChunk(rx, buf[filled:], tok)
		filled += n
		chunks++
		if err != nil {
			r.ep.logData(log.DirectionIn, buf[:filled], chunks)
			r.ep.logError("receive_exact", err)
			return buf[:filled], err
		}
	}
	r.ep.logData(log.DirectionIn, buf, chunks)
	return buf, nil
}

func (r reader) receiveChunk(rx socket.Receiver, buf []byte, tok *cancel.Token) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	chunk := buf[:min(ChunkSize, len(buf))]
	n, err := rx.Receive(chunk, tok)
	if n > len(chunk) {
		panic("BUG: transport reported more bytes than requested")
	}
	if err == nil && n == 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// writer implements the write side of the I/O contract for every stream
// shape. owner is kept reachable like reader.owner.
type writer struct {
	ep     *endpoint
	source func() (socket.Sender, error)
	owner  any
}

// Write writes all of buf in chunks of at most ChunkSize bytes. The number
// of bytes written before a failure is not reported.
func (w writer) Write(buf []byte) error {
	return w.WriteWithCancellation(buf, cancel.Never())
}

// WriteWithCancellation is Write aborted by tok. Cancellation takes effect
// between chunks; a chunk already handed to the transport is completed.
func (w writer) WriteWithCancellation(buf []byte, tok *cancel.Token) error {
	defer runtime.KeepAlive(w.owner)

	tx, err := w.source()
	if err != nil {
		return err
	}

	written, chunks := 0, 0
	for written < len(buf) {
		chunk := buf[written:min(written+ChunkSize, len(buf))]
		n, err := tx.Write(chunk, tok)
		chunks++
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if n > len(chunk) {
			panic("BUG: transport reported more bytes than offered")
		}
		written += n
		if err != nil {
			w.ep.logError("write", err)
			return err
		}
	}
	w.ep.logData(log.DirectionOut, buf, chunks)
	return nil
}
