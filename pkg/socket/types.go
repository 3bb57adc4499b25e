package socket

import "fmt"

// Family is the address family a socket is created for.
type Family uint8

const (
	// FamilyIPv4 selects IPv4 addressing.
	FamilyIPv4 Family = iota
	// FamilyIPv6 selects IPv6 addressing.
	FamilyIPv6
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "IPv4"
	case FamilyIPv6:
		return "IPv6"
	default:
		return "UNKNOWN"
	}
}

// Network returns the Go network name for a stream socket of this family.
func (f Family) Network() string {
	if f == FamilyIPv6 {
		return "tcp6"
	}
	return "tcp4"
}

// Type is the socket type.
type Type uint8

const (
	// TypeStream is a connection-mode byte stream.
	TypeStream Type = iota
	// TypeDatagram is a connectionless datagram socket.
	TypeDatagram
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeStream:
		return "STREAM"
	case TypeDatagram:
		return "DATAGRAM"
	default:
		return "UNKNOWN"
	}
}

// Protocol is the transport protocol carried by the socket.
type Protocol uint8

const (
	// ProtocolTCP is plain TCP.
	ProtocolTCP Protocol = iota
	// ProtocolTLS12 is TLS (1.2 or later) over TCP.
	ProtocolTLS12
)

// String returns the protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolTLS12:
		return "TLS1.2"
	default:
		return "UNKNOWN"
	}
}

// OptionKind identifies an Option variant.
type OptionKind uint8

const (
	// OptionPeerVerify sets the peer verification level (0, 1 or 2).
	OptionPeerVerify OptionKind = iota
	// OptionSessionCache enables or disables TLS session caching.
	OptionSessionCache
	// OptionTagList installs the security tags used for the handshake.
	OptionTagList
)

// String returns the option name.
func (k OptionKind) String() string {
	switch k {
	case OptionPeerVerify:
		return "PEER_VERIFY"
	case OptionSessionCache:
		return "SESSION_CACHE"
	case OptionTagList:
		return "TAG_LIST"
	default:
		return "UNKNOWN"
	}
}

// Option is a socket configuration value. Build one with PeerVerify,
// SessionCache or TagList.
type Option struct {
	Kind OptionKind

	// Level is set for OptionPeerVerify.
	Level uint32

	// Enabled is set for OptionSessionCache.
	Enabled bool

	// Tags is set for OptionTagList, in preference order.
	Tags []uint32
}

// PeerVerify returns the option setting the peer verification level.
func PeerVerify(level uint32) Option {
	return Option{Kind: OptionPeerVerify, Level: level}
}

// SessionCache returns the option toggling TLS session caching.
func SessionCache(enabled bool) Option {
	return Option{Kind: OptionSessionCache, Enabled: enabled}
}

// TagList returns the option installing the security tag list.
// The slice is copied.
func TagList(tags []uint32) Option {
	return Option{Kind: OptionTagList, Tags: append([]uint32(nil), tags...)}
}

// String returns a human-readable representation of the option.
func (o Option) String() string {
	switch o.Kind {
	case OptionPeerVerify:
		return fmt.Sprintf("%s=%d", o.Kind, o.Level)
	case OptionSessionCache:
		return fmt.Sprintf("%s=%t", o.Kind, o.Enabled)
	case OptionTagList:
		return fmt.Sprintf("%s=%v", o.Kind, o.Tags)
	default:
		return o.Kind.String()
	}
}
