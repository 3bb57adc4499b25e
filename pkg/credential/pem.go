package credential

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
)

// PEM decoding errors.
var (
	ErrInvalidPEM = errors.New("invalid PEM data")
	ErrInvalidKey = errors.New("invalid private key")
)

// DecodeCertsPEM decodes every CERTIFICATE block in data.
// Non-certificate blocks are skipped. At least one certificate is required.
func DecodeCertsPEM(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, ErrInvalidPEM
	}
	return certs, nil
}

// DecodeKeyPEM decodes a PEM-encoded private key. EC, PKCS#1 and PKCS#8
// encodings are accepted.
func DecodeKeyPEM(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return signer, nil
	default:
		return nil, ErrInvalidPEM
	}
}

// ReadCertsFile reads all certificates from a PEM file.
func ReadCertsFile(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeCertsPEM(data)
}

// ReadKeyFile reads a private key from a PEM file.
func ReadKeyFile(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeKeyPEM(data)
}
