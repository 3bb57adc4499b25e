package credential

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
)

// Credential errors.
var (
	ErrCredentialNotFound = errors.New("credential not found for security tag")
	ErrInvalidCredential  = errors.New("invalid credential")
)

// Credential is the credential set referenced by one security tag.
type Credential struct {
	// Tag is the security tag this set is stored under.
	Tag uint32

	// CACerts verify the peer's certificate chain.
	CACerts []*x509.Certificate

	// Certificate is the client certificate presented for mutual TLS.
	// Nil if the tag carries no client identity.
	Certificate *tls.Certificate
}

// Validate checks that the credential carries something usable.
func (c *Credential) Validate() error {
	if c == nil {
		return ErrInvalidCredential
	}
	if len(c.CACerts) == 0 && c.Certificate == nil {
		return ErrInvalidCredential
	}
	if c.Certificate != nil && (len(c.Certificate.Certificate) == 0 || c.Certificate.PrivateKey == nil) {
		return ErrInvalidCredential
	}
	return nil
}

// Store looks up credentials by security tag.
// Implementations must be safe for concurrent access.
type Store interface {
	// Credential returns the credential set for tag.
	// Returns ErrCredentialNotFound if the tag is not provisioned.
	Credential(tag uint32) (*Credential, error)
}

// Resolved is the merged view of a tag list, ready for a TLS configuration.
type Resolved struct {
	// RootCAs contains the CA certificates of all tags.
	RootCAs *x509.CertPool

	// Certificates contains the client certificates of all tags, in tag order.
	Certificates []tls.Certificate
}

// Resolve looks up every tag in order and merges the results.
// The first lookup failure aborts the resolution.
func Resolve(store Store, tags []uint32) (*Resolved, error) {
	res := &Resolved{}
	if len(tags) == 0 {
		return res, nil
	}

	res.RootCAs = x509.NewCertPool()
	for _, tag := range tags {
		cred, err := store.Credential(tag)
		if err != nil {
			return nil, err
		}
		for _, ca := range cred.CACerts {
			res.RootCAs.AddCert(ca)
		}
		if cred.Certificate != nil {
			res.Certificates = append(res.Certificates, *cred.Certificate)
		}
	}
	return res, nil
}
