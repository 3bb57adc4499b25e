package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/lteconn/lteconn-go/pkg/cancel"
	"github.com/lteconn/lteconn-go/pkg/credential"
	"github.com/lteconn/lteconn-go/pkg/link"
	"github.com/lteconn/lteconn-go/pkg/log"
	"github.com/lteconn/lteconn-go/pkg/resolve"
	"github.com/lteconn/lteconn-go/pkg/socket"
	"github.com/lteconn/lteconn-go/pkg/socket/tlssock"
	"github.com/lteconn/lteconn-go/pkg/tlsstream"
)

// BuildOptions supplies the parts of a runtime that do not come from the
// profile.
type BuildOptions struct {
	// Radio drives the physical link. Nil means the link is always on.
	Radio link.Radio

	// Slog, if set, receives protocol events as structured log records.
	Slog *slog.Logger

	// Sockets replaces the TLS socket factory, e.g. with a scripted one.
	Sockets socket.Factory

	// Credentials replaces the store read from CredentialsDir.
	Credentials credential.Store
}

// Runtime is a profile assembled into live components.
type Runtime struct {
	Config *Config
	Dialer *tlsstream.Dialer
	Link   *link.Manager
	Logger log.Logger

	fileLogger *log.FileLogger
}

// Build assembles the components described by the profile.
func (c *Config) Build(opts BuildOptions) (*Runtime, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	// Tags are resolved by the built-in socket factory only.
	if len(c.SecurityTags) > 0 && opts.Sockets == nil &&
		opts.Credentials == nil && c.CredentialsDir == "" {
		return nil, ErrMissingCredentials
	}

	rt := &Runtime{Config: c}

	var loggers []log.Logger
	if opts.Slog != nil {
		loggers = append(loggers, log.NewSlogAdapter(opts.Slog))
	}
	if c.LogFile != "" {
		fl, err := log.NewRotatingFileLogger(c.LogFile, c.LogMaxSize)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		rt.fileLogger = fl
		loggers = append(loggers, fl)
	}
	switch len(loggers) {
	case 0:
	case 1:
		rt.Logger = loggers[0]
	default:
		rt.Logger = log.NewMultiLogger(loggers...)
	}

	rt.Link = link.NewManager(link.Config{
		Radio:         opts.Radio,
		Backoff:       c.Link.Backoff,
		AttachTimeout: c.Link.AttachTimeout,
		Logger:        rt.Logger,
	})

	store := opts.Credentials
	if store == nil && c.CredentialsDir != "" {
		store = credential.NewFileStore(c.CredentialsDir)
	}

	sockets := opts.Sockets
	if sockets == nil {
		sockets = &tlssock.Factory{
			Credentials:  store,
			Link:         rt.Link,
			ServerName:   c.serverName(),
			CloseTimeout: c.CloseTimeout,
			Logger:       rt.Logger,
		}
	}

	rt.Dialer = &tlsstream.Dialer{
		Sockets: sockets,
		Link:    rt.Link,
		Resolver: &resolve.Auto{
			DNS: &resolve.DNSResolver{},
			MDNS: resolve.NewMDNSResolver(resolve.MDNSConfig{
				Interface:     c.MDNS.Interface,
				BrowseTimeout: c.MDNS.BrowseTimeout,
			}),
		},
		Logger: rt.Logger,
	}

	return rt, nil
}

// serverName is the name checked against the peer certificate. DNS-SD
// instances and IP literals leave it to the socket.
func (c *Config) serverName() string {
	if c.ServerName != "" {
		return c.ServerName
	}
	if resolve.IsServiceInstance(c.Address) {
		return ""
	}
	host, _, err := net.SplitHostPort(c.Address)
	if err != nil || net.ParseIP(host) != nil {
		return ""
	}
	return host
}

// Connect connects to the profile's address. The attempt is cancelled by
// tok or after the profile's connect timeout, whichever comes first.
func (rt *Runtime) Connect(tok *cancel.Token) (*tlsstream.Stream, error) {
	if tok == nil {
		tok = cancel.Never()
	}
	attempt := cancel.FromContext(tok.Context())
	stop := attempt.CancelAfter(rt.Config.connectTimeout())
	defer stop()
	defer attempt.Cancel()

	return rt.Dialer.ConnectWithCancellation(rt.Config.Address, rt.Config.PeerVerify, rt.Config.SecurityTags, attempt)
}

// Close releases the link and flushes the event log.
func (rt *Runtime) Close() error {
	var errs []error
	if err := rt.Link.Close(); err != nil {
		errs = append(errs, err)
	}
	if rt.fileLogger != nil {
		if err := rt.fileLogger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
