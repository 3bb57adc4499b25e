// Package tlssock implements package socket over TCP and crypto/tls.
//
// Every socket created by a Factory holds its own reference on the physical
// link for as long as it (or any half split from it) is alive.
//
// Cancellation of a blocked receive is delivered through the connection's
// read deadline; crypto/tls treats a read timeout as recoverable, so the
// stream stays usable afterwards. Writes check the token before handing a
// record to the connection and are never interrupted part-way, since an
// interrupted TLS write leaves the connection unusable.
package tlssock
