package tlsstream

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// Stream errors.
var (
	// ErrDeactivated is returned by operations on a deactivated stream or half.
	ErrDeactivated = errors.New("stream deactivated")

	// ErrStreamConsumed is returned by operations on a stream that was split
	// with SplitOwned.
	ErrStreamConsumed = errors.New("stream consumed by SplitOwned")
)

// AttemptError is the failure of one candidate address.
type AttemptError struct {
	Addr netip.AddrPort
	Err  error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Addr, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned by Connect when every candidate failed.
// It unwraps to the last candidate's error.
type ExhaustedError struct {
	// Attempts holds every failed attempt in order.
	Attempts []*AttemptError

	// Last is the error of the final attempt.
	Last error
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) <= 1 {
		return fmt.Sprintf("connect failed: %v", e.Last)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "all %d candidates failed, last: %v (", len(e.Attempts), e.Last)
	for i, a := range e.Attempts[:len(e.Attempts)-1] {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(a.Error())
	}
	b.WriteString(")")
	return b.String()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
