package socket

import (
	"errors"
	"fmt"

	"github.com/lteconn/lteconn-go/pkg/cancel"
)

// Socket errors.
var (
	ErrDeactivated       = errors.New("socket deactivated")
	ErrNotConnected      = errors.New("socket not connected")
	ErrAlreadyConnected  = errors.New("socket already connected")
	ErrWrongDirection    = errors.New("operation not permitted on this half")
	ErrUnsupported       = errors.New("unsupported socket type or protocol")
	ErrUnsupportedOption = errors.New("unsupported socket option")
	ErrInvalidOption     = errors.New("invalid socket option value")
)

// Error is a transport failure reported by a socket operation.
// The cause is preserved and reachable through errors.Is / errors.As.
type Error struct {
	// Op is the failed operation ("create", "set_option", "connect",
	// "receive", "write", "split", "deactivate").
	Op string

	// FD is the socket descriptor, -1 if unknown.
	FD int32

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.FD >= 0 {
		return fmt.Sprintf("socket %s (fd %d): %v", e.Op, e.FD, e.Err)
	}
	return fmt.Sprintf("socket %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err wrapped in an *Error unless it is nil, already an
// *Error, or a cancellation.
func Wrap(op string, fd int32, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, cancel.ErrCancelled) {
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, FD: fd, Err: err}
}
