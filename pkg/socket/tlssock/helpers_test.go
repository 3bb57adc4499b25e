package tlssock

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// generateTestCertificate creates a self-signed certificate valid for
// 127.0.0.1 that can also serve as its own trust anchor.
func generateTestCertificate(t *testing.T, cn string) (tls.Certificate, *x509.Certificate) {
	t.Helper()

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName: cn,
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		DNSNames:              []string{cn},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  privateKey,
		Leaf:        cert,
	}, cert
}

type testServer struct {
	addr netip.AddrPort
	ca   *x509.Certificate

	// accepted receives every accepted connection after its handshake.
	accepted chan *tls.Conn
}

// startServer runs a TLS server on 127.0.0.1 that hands each connection
// to handler. Configure can adjust the server configuration.
func startServer(t *testing.T, handler func(*tls.Conn), configure ...func(*tls.Config)) *testServer {
	t.Helper()

	cert, leaf := generateTestCertificate(t, "device.test")
	conf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	for _, fn := range configure {
		fn(conf)
	}

	ln, err := tls.Listen("tcp4", "127.0.0.1:0", conf)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := &testServer{
		addr:     ln.Addr().(*net.TCPAddr).AddrPort(),
		ca:       leaf,
		accepted: make(chan *tls.Conn, 8),
	}

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			tc := c.(*tls.Conn)
			go func() {
				defer tc.Close()
				if err := tc.Handshake(); err != nil {
					return
				}
				srv.accepted <- tc
				handler(tc)
			}()
		}
	}()

	return srv
}

// echo copies everything back until the client closes its side.
func echo(c *tls.Conn) {
	_, _ = io.Copy(c, c)
}

// hold keeps the connection open without sending anything until the
// client closes its side.
func hold(c *tls.Conn) {
	_, _ = io.Copy(io.Discard, c)
}
