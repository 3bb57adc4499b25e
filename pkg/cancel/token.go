package cancel

import (
	"context"
	"errors"
	"time"
)

// ErrCancelled is returned by operations aborted through a Token.
var ErrCancelled = errors.New("operation cancelled")

// Token is a cancellation signal. The zero value is not usable; create one
// with New, Never or FromContext.
//
// A Token is safe for concurrent use. It may be shared between goroutines,
// e.g. to cancel a read half and a write half together.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a token that is cancelled by calling Cancel.
func New() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}

// Never returns a new token that can never be cancelled.
func Never() *Token {
	return &Token{ctx: context.Background()}
}

// FromContext returns a token that is cancelled when ctx is done or when
// Cancel is called, whichever happens first.
func FromContext(ctx context.Context) *Token {
	ctx, cancel := context.WithCancel(ctx)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel signals cancellation. It is a no-op on tokens built with Never and
// on tokens that are already cancelled.
func (t *Token) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

// CancelAfter cancels the token once d has elapsed. The returned function
// stops the timer; it reports false if the token was already cancelled by it.
func (t *Token) CancelAfter(d time.Duration) (stop func() bool) {
	if t.cancel == nil {
		return func() bool { return false }
	}
	timer := time.AfterFunc(d, t.cancel)
	return timer.Stop
}

// Done returns a channel that is closed when the token is cancelled.
// For tokens built with Never, Done returns nil.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// IsCancelled reports whether the token has been cancelled.
func (t *Token) IsCancelled() bool {
	return t.ctx.Err() != nil
}

// Err returns ErrCancelled once the token has been cancelled, nil otherwise.
func (t *Token) Err() error {
	if t.ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// Context returns a context that is done when the token is cancelled.
// Useful to hand the token to context-aware library calls.
func (t *Token) Context() context.Context {
	return t.ctx
}
