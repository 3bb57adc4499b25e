package tlssock

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/lteconn/lteconn-go/pkg/credential"
	"github.com/lteconn/lteconn-go/pkg/socket"
)

// Peer verification levels understood by OptionPeerVerify.
const (
	VerifyNone     uint32 = 0
	VerifyOptional uint32 = 1
	VerifyRequired uint32 = 2
)

// ErrNoCredentialStore is returned when a tag list is set but the factory
// has no credential store.
var ErrNoCredentialStore = errors.New("security tags set but no credential store configured")

// options is the per-socket configuration collected through SetOption.
type options struct {
	verify       uint32
	sessionCache bool
	tags         []uint32
}

func defaultOptions() options {
	return options{verify: VerifyRequired}
}

func (o *options) apply(opt socket.Option) error {
	switch opt.Kind {
	case socket.OptionPeerVerify:
		if opt.Level > VerifyRequired {
			return fmt.Errorf("%w: peer verify level %d", socket.ErrInvalidOption, opt.Level)
		}
		o.verify = opt.Level
	case socket.OptionSessionCache:
		o.sessionCache = opt.Enabled
	case socket.OptionTagList:
		o.tags = append([]uint32(nil), opt.Tags...)
	default:
		return fmt.Errorf("%w: %s", socket.ErrUnsupportedOption, opt.Kind)
	}
	return nil
}

// clientTLSConfig builds the client configuration for one connection.
// onUnverified is called when optional verification fails.
func clientTLSConfig(o options, serverName string, store credential.Store,
	cache tls.ClientSessionCache, onUnverified func(error)) (*tls.Config, error) {

	var creds *credential.Resolved
	if len(o.tags) > 0 {
		if store == nil {
			return nil, ErrNoCredentialStore
		}
		var err error
		creds, err = credential.Resolve(store, o.tags)
		if err != nil {
			return nil, fmt.Errorf("resolve security tags %v: %w", o.tags, err)
		}
	} else {
		creds = &credential.Resolved{}
	}

	tlsConfig := &tls.Config{
		// TLS 1.2 is the oldest version the modem profile accepts
		MinVersion: tls.VersionTLS12,

		// Client certificates of all tags, offered in tag order
		Certificates: creds.Certificates,

		// Nil falls back to the system pool
		RootCAs: creds.RootCAs,

		ServerName: serverName,

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}

	if o.sessionCache {
		tlsConfig.ClientSessionCache = cache
	} else {
		tlsConfig.SessionTicketsDisabled = true
	}

	switch o.verify {
	case VerifyNone:
		tlsConfig.InsecureSkipVerify = true
	case VerifyOptional:
		// The handshake proceeds either way; a failed chain is only reported.
		tlsConfig.InsecureSkipVerify = true
		roots := creds.RootCAs
		tlsConfig.VerifyConnection = func(cs tls.ConnectionState) error {
			if err := verifyChain(cs, roots, serverName); err != nil && onUnverified != nil {
				onUnverified(err)
			}
			return nil
		}
	}

	return tlsConfig, nil
}

// verifyChain performs the standard chain and name verification.
func verifyChain(cs tls.ConnectionState, roots *x509.CertPool, serverName string) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("peer presented no certificate")
	}
	intermediates := x509.NewCertPool()
	for _, cert := range cs.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(x509.VerifyOptions{
		DNSName:       serverName,
		Roots:         roots,
		Intermediates: intermediates,
	})
	return err
}
