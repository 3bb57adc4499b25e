// Package credential resolves security tags to pre-provisioned credential
// sets.
//
// A security tag is an opaque number that names a credential set installed
// on the device ahead of time: the CA certificates used to verify the peer
// and, optionally, a client certificate and key for mutual TLS. The stream
// layer hands a list of tags to the socket; the socket looks each one up
// here when it builds its TLS configuration.
//
// This package only reads credentials. Provisioning, generation and
// rotation happen elsewhere.
//
// # File Layout
//
// FileStore expects one directory per tag below its base directory:
//
//	<base>/<tag>/ca.pem      CA certificates (one or more PEM blocks)
//	<base>/<tag>/client.pem  client certificate chain (optional)
//	<base>/<tag>/client.key  client private key (required with client.pem)
package credential
