// Package socket defines the transport capability consumed by the secure
// stream layer.
//
// A Socket is a numbered, connection-mode, encrypted transport handle. It is
// created for an address family, configured through Options, connected once,
// and then used for single bounded receive and write transfers. A connected
// Socket can be split irreversibly into two independently closable Handles,
// one for each direction.
//
// The package only holds the interfaces, option variants and errors. The
// TLS-over-TCP implementation lives in the tlssock subpackage and scripted
// fakes for tests in sockettest.
package socket
