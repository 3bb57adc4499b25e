package tlssock

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/netip"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

// ErrCloseTimeout is returned by Close when the peer did not finish the
// close within the timeout. The connection is released regardless.
var ErrCloseTimeout = errors.New("close timed out waiting for peer")

// conn is the connection state shared by a socket and the halves split
// from it. It is released when the last reference is dropped.
type conn struct {
	// Set once by Connect, read-only afterwards.
	tls    *tls.Conn
	raw    net.Conn
	fd     int32
	remote netip.AddrPort

	link         *link.Handle
	logger       log.Logger
	closeTimeout time.Duration

	// rmu serializes receives so read deadlines of concurrent receives do
	// not interfere.
	rmu sync.Mutex

	mu   sync.Mutex
	refs int
}

func (c *conn) attach(tc *tls.Conn, raw net.Conn, remote netip.AddrPort) {
	c.tls = tc
	c.raw = raw
	c.remote = remote
	c.fd = rawFD(raw)
}

func (c *conn) connected() bool {
	return c.tls != nil
}

func (c *conn) addRef() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs++
}

// receive reads into buf. A cancelled token interrupts a blocked read by
// moving the read deadline into the past.
func (c *conn) receive(buf []byte, tok *cancel.Token) (int, error) {
	if err := tok.Err(); err != nil {
		return 0, err
	}
	if !c.connected() {
		return 0, &socket.Error{Op: "receive", FD: c.fd, Err: socket.ErrNotConnected}
	}

	c.rmu.Lock()
	defer c.rmu.Unlock()

	fired := make(chan struct{})
	stop := context.AfterFunc(tok.Context(), func() {
		_ = c.tls.SetReadDeadline(time.Unix(1, 0))
		close(fired)
	})

	n, err := c.tls.Read(buf)

	if !stop() {
		<-fired
		_ = c.tls.SetReadDeadline(time.Time{})
		if n == 0 && errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, cancel.ErrCancelled
		}
	}
	if err != nil {
		return n, socket.Wrap("receive", c.fd, err)
	}
	return n, nil
}

// write hands buf to the TLS connection. The token is only consulted
// before the write starts.
func (c *conn) write(buf []byte, tok *cancel.Token) (int, error) {
	if err := tok.Err(); err != nil {
		return 0, err
	}
	if !c.connected() {
		return 0, &socket.Error{Op: "write", FD: c.fd, Err: socket.ErrNotConnected}
	}
	n, err := c.tls.Write(buf)
	return n, socket.Wrap("write", c.fd, err)
}

// shutdownWrite sends close_notify and half-closes the TCP connection.
func (c *conn) shutdownWrite() error {
	if !c.connected() {
		return nil
	}
	err := c.tls.CloseWrite()
	if tcp, ok := c.raw.(interface{ CloseWrite() error }); ok {
		if terr := tcp.CloseWrite(); err == nil && !errors.Is(terr, net.ErrClosed) {
			err = terr
		}
	}
	return err
}

// drain discards incoming data until the peer closes or the close timeout
// expires.
func (c *conn) drain() error {
	if !c.connected() {
		return nil
	}
	_ = c.tls.SetReadDeadline(time.Now().Add(c.closeTimeout))
	_, err := io.Copy(io.Discard, c.tls)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrCloseTimeout
	}
	return nil
}

// release drops one reference. The last reference closes the connection
// and releases the link. With graceful set the peer is given the chance to
// finish the close first.
func (c *conn) release(graceful bool) error {
	c.mu.Lock()
	c.refs--
	last := c.refs == 0
	c.mu.Unlock()

	if !last {
		return nil
	}

	var errs []error
	if c.connected() {
		if graceful {
			if err := c.shutdownWrite(); err != nil {
				errs = append(errs, err)
			}
			if err := c.drain(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := c.tls.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if c.link != nil {
		if err := c.link.Deactivate(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *conn) logState(state, reason string) {
	ev := log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSocket,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySocket,
			NewState: state,
			Reason:   reason,
		},
	}
	c.annotate(&ev)
	c.logger.Log(ev)
}

func (c *conn) logError(op string, err error) {
	ev := log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSocket,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSocket,
			Message: err.Error(),
			Context: op,
		},
	}
	c.annotate(&ev)
	c.logger.Log(ev)
}

func (c *conn) annotate(ev *log.Event) {
	if c.remote.IsValid() {
		ev.RemoteAddr = c.remote.String()
	}
	if c.fd >= 0 {
		fd := c.fd
		ev.FD = &fd
	}
}

// rawFD returns the OS descriptor behind conn, or -1.
func rawFD(conn net.Conn) int32 {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return -1
	}
	fd := int32(-1)
	_ = rc.Control(func(p uintptr) {
		fd = int32(p)
	})
	return fd
}
