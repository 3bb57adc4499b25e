// Package resolve turns an address into the ordered list of candidate
// socket addresses a connection is attempted against.
//
// Two address forms are understood:
//
//	host:port                         DNS name or IP literal
//	Instance._service._tcp.local      DNS-SD service instance, via mDNS
//
// Candidates keep the order the name system returned them in. A resolver
// never returns an empty list without an error: a name that yields no
// address is reported as ErrUnresolved.
package resolve
