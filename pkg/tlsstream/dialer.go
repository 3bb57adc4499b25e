package tlsstream

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/resolve"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

// Dialer establishes Streams.
type Dialer struct {
	// Sockets creates the transport for each candidate. Required.
	Sockets socket.Factory

	// Link is kept active for the duration of a connect. Nil uses a
	// manager with an always-on radio.
	Link *link.Manager

	// Resolver turns the address into candidates. Nil uses resolve.NewAuto.
	Resolver resolve.Resolver

	// Logger receives connect and stream events. Nil disables event logging.
	Logger log.Logger

	initOnce sync.Once
}

func (d *Dialer) init() {
	d.initOnce.Do(func() {
		if d.Link == nil {
			d.Link = link.NewManager(link.Config{Logger: d.Logger})
		}
		if d.Resolver == nil {
			d.Resolver = resolve.NewAuto()
		}
	})
}

// Connect connects to addr. It is ConnectWithCancellation with a token that
// never fires.
func (d *Dialer) Connect(addr string, verify PeerVerification, tags []uint32) (*Stream, error) {
	return d.ConnectWithCancellation(addr, verify, tags, cancel.Never())
}

// ConnectWithCancellation activates the link, resolves addr and tries each
// candidate in order until one completes the TLS handshake.
//
// The link is released exactly once on every path. A failure to create or
// configure a socket, or to deactivate a socket after a failed attempt,
// aborts the remaining candidates. If every candidate fails the result is an
// *ExhaustedError that unwraps to the last attempt's error.
func (d *Dialer) ConnectWithCancellation(addr string, verify PeerVerification, tags []uint32, tok *cancel.Token) (*Stream, error) {
	if d.Sockets == nil {
		panic("BUG: tlsstream.Dialer used without a socket factory")
	}
	d.init()

	if err := tok.Err(); err != nil {
		return nil, err
	}

	lnk, err := d.Link.Acquire(tok.Context())
	if err != nil {
		if tok.IsCancelled() {
			return nil, cancel.ErrCancelled
		}
		return nil, err
	}
	released := false
	releaseLink := func() error {
		released = true
		return lnk.Deactivate(context.Background())
	}
	defer func() {
		if !released {
			if lerr := releaseLink(); lerr != nil {
				d.logError("link_release", lerr)
			}
		}
	}()

	candidates, err := d.Resolver.Resolve(tok.Context(), addr)
	if err != nil {
		if tok.IsCancelled() {
			return nil, cancel.ErrCancelled
		}
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if len(candidates) == 0 {
		panic("BUG: resolver returned no candidates without an error")
	}

	var attempts []*AttemptError
	for i, candidate := range candidates {
		if err := tok.Err(); err != nil {
			return nil, err
		}

		sock, err := d.prepare(candidate, verify, tags)
		if err != nil {
			return nil, err
		}

		started := time.Now()
		d.logAttempt(i, candidate, log.AttemptStarted, nil, 0)

		cerr := sock.Connect(candidate, tok)
		if cerr == nil {
			d.logAttempt(i, candidate, log.AttemptSucceeded, nil, time.Since(started))
			if lerr := releaseLink(); lerr != nil {
				// A stream is only returned with the link in a known state.
				if derr := sock.Deactivate(); derr != nil {
					d.logError("deactivate", derr)
				}
				return nil, lerr
			}
			s := newStream(sock, candidate, d.Logger)
			s.ep.logState("CONNECTED", fmt.Sprintf("candidate %d of %d", i+1, len(candidates)))
			return s, nil
		}

		d.logAttempt(i, candidate, log.AttemptFailed, cerr, time.Since(started))
		attempts = append(attempts, &AttemptError{Addr: candidate, Err: cerr})

		if derr := sock.Deactivate(); derr != nil {
			return nil, derr
		}
	}

	last := attempts[len(attempts)-1].Err
	if lerr := releaseLink(); lerr != nil {
		return nil, lerr
	}
	if errors.Is(last, cancel.ErrCancelled) {
		return nil, last
	}
	return nil, &ExhaustedError{Attempts: attempts, Last: last}
}

// prepare creates and configures the socket for one candidate. On an option
// failure the socket is released before returning.
func (d *Dialer) prepare(addr netip.AddrPort, verify PeerVerification, tags []uint32) (socket.Socket, error) {
	sock, err := d.Sockets.Create(socket.FamilyOf(addr), socket.TypeStream, socket.ProtocolTLS12)
	if err != nil {
		return nil, err
	}

	opts := []socket.Option{
		socket.PeerVerify(verify.Integer()),
		socket.SessionCache(false),
		socket.TagList(tags),
	}
	for _, opt := range opts {
		if err := sock.SetOption(opt); err != nil {
			if derr := sock.Deactivate(); derr != nil {
				d.logError("deactivate", derr)
			}
			return nil, err
		}
	}
	return sock, nil
}

func (d *Dialer) logAttempt(index int, addr netip.AddrPort, outcome log.AttemptOutcome, err error, took time.Duration) {
	if d.Logger == nil {
		return
	}
	attempt := &log.AttemptEvent{
		Index:    index,
		Address:  addr.String(),
		Family:   socket.FamilyOf(addr).String(),
		Outcome:  outcome,
		Duration: took,
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	d.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		Layer:      log.LayerStream,
		Category:   log.CategoryAttempt,
		RemoteAddr: addr.String(),
		Attempt:    attempt,
	})
}

func (d *Dialer) logError(op string, err error) {
	if d.Logger == nil {
		return
	}
	d.Logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerStream,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerStream,
			Message: err.Error(),
			Context: op,
		},
	})
}
