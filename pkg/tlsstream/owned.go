package tlsstream

import (
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lteconn/lteconn-go/pkg/socket"
)

// ownedHalf is the state shared by both owned half types.
type ownedHalf struct {
	ep          *endpoint
	h           socket.Handle
	deactivated atomic.Bool
	guard       runtime.Cleanup
	name        string
}

func (o *ownedHalf) usable() error {
	if o.deactivated.Load() {
		return ErrDeactivated
	}
	return nil
}

func (o *ownedHalf) deactivate() error {
	if !o.deactivated.CompareAndSwap(false, true) {
		return ErrDeactivated
	}
	o.guard.Stop()

	err := o.h.Deactivate()
	if err != nil {
		o.ep.logError("deactivate", err)
	}
	o.ep.logState("DEACTIVATED", o.name)
	return err
}

// OwnedReadHalf owns the receive direction of a stream split by SplitOwned.
type OwnedReadHalf struct {
	reader
	ownedHalf
}

func newOwnedReadHalf(h socket.Handle, ep *endpoint) *OwnedReadHalf {
	r := &OwnedReadHalf{ownedHalf: ownedHalf{ep: ep, h: h, name: "read half"}}
	r.reader = reader{ep: ep, source: r.receiver, owner: r}
	r.guard = runtime.AddCleanup(r, closeLeaked, leaked{h: h, ep: ep})
	return r
}

func (r *OwnedReadHalf) receiver() (socket.Receiver, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	return r.h, nil
}

// ID returns the connection ID of the stream this half came from.
func (r *OwnedReadHalf) ID() uuid.UUID {
	return r.ownedHalf.ep.id
}

// RawFD returns the transport descriptor.
func (r *OwnedReadHalf) RawFD() int32 {
	return r.h.RawFD()
}

// Deactivate releases the receive direction. The write half is unaffected.
func (r *OwnedReadHalf) Deactivate() error {
	return r.deactivate()
}

// OwnedWriteHalf owns the send direction of a stream split by SplitOwned.
type OwnedWriteHalf struct {
	writer
	ownedHalf
}

func newOwnedWriteHalf(h socket.Handle, ep *endpoint) *OwnedWriteHalf {
	w := &OwnedWriteHalf{ownedHalf: ownedHalf{ep: ep, h: h, name: "write half"}}
	w.writer = writer{ep: ep, source: w.sender, owner: w}
	w.guard = runtime.AddCleanup(w, closeLeaked, leaked{h: h, ep: ep})
	return w
}

func (w *OwnedWriteHalf) sender() (socket.Sender, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	return w.h, nil
}

// ID returns the connection ID of the stream this half came from.
func (w *OwnedWriteHalf) ID() uuid.UUID {
	return w.ownedHalf.ep.id
}

// RawFD returns the transport descriptor.
func (w *OwnedWriteHalf) RawFD() int32 {
	return w.h.RawFD()
}

// Deactivate releases the send direction. The read half is unaffected.
func (w *OwnedWriteHalf) Deactivate() error {
	return w.deactivate()
}
