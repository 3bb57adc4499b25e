package link

import (
	"errors"
	"fmt"
)

// Link errors.
var (
	ErrManagerClosed   = errors.New("link manager closed")
	ErrAlreadyReleased = errors.New("link handle already released")
)

// Error is a physical-link failure.
type Error struct {
	// Op is "activate", "attach" or "deactivate".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("link %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
