package tlssock

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lteconn/lteconn-go/pkg/credential"
	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

// DefaultCloseTimeout bounds the graceful close performed by Close.
const DefaultCloseTimeout = 5 * time.Second

// Factory creates TLS sockets.
type Factory struct {
	// Dialer dials the TCP connection. Nil uses a zero net.Dialer.
	Dialer *net.Dialer

	// Credentials resolves security tags. Required only when a tag list
	// is set on a socket.
	Credentials credential.Store

	// Link, if set, is held by every socket until it is released.
	Link *link.Manager

	// ServerName is the name verified against the peer certificate.
	// Empty means the IP address being connected to.
	ServerName string

	// CloseTimeout bounds Close. Zero selects DefaultCloseTimeout.
	CloseTimeout time.Duration

	// Logger receives socket events. Nil disables event logging.
	Logger log.Logger

	cacheOnce sync.Once
	cache     tls.ClientSessionCache
}

// Create implements socket.Factory. Only stream sockets speaking TLS are
// supported.
func (f *Factory) Create(family socket.Family, typ socket.Type, proto socket.Protocol) (socket.Socket, error) {
	if typ != socket.TypeStream || proto != socket.ProtocolTLS12 {
		return nil, &socket.Error{
			Op:  "create",
			FD:  -1,
			Err: fmt.Errorf("%w: %s/%s", socket.ErrUnsupported, typ, proto),
		}
	}
	if family != socket.FamilyIPv4 && family != socket.FamilyIPv6 {
		return nil, &socket.Error{
			Op:  "create",
			FD:  -1,
			Err: fmt.Errorf("%w: family %s", socket.ErrUnsupported, family),
		}
	}

	var handle *link.Handle
	if f.Link != nil {
		var err error
		handle, err = f.Link.Acquire(context.Background())
		if err != nil {
			return nil, err
		}
	}

	return &Socket{
		f:      f,
		family: family,
		opts:   defaultOptions(),
		c: &conn{
			fd:           -1,
			refs:         1,
			link:         handle,
			logger:       log.OrNoop(f.Logger),
			closeTimeout: f.closeTimeout(),
		},
	}, nil
}

func (f *Factory) dialer() *net.Dialer {
	if f.Dialer != nil {
		return f.Dialer
	}
	return &net.Dialer{}
}

func (f *Factory) closeTimeout() time.Duration {
	if f.CloseTimeout > 0 {
		return f.CloseTimeout
	}
	return DefaultCloseTimeout
}

// sessionCache is shared by all sockets that enable session caching.
func (f *Factory) sessionCache() tls.ClientSessionCache {
	f.cacheOnce.Do(func() {
		f.cache = tls.NewLRUClientSessionCache(0)
	})
	return f.cache
}

var _ socket.Factory = (*Factory)(nil)
