package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Resolution errors.
var (
	ErrUnresolved     = errors.New("address did not resolve to any candidate")
	ErrInvalidAddress = errors.New("invalid address")
)

// Resolver resolves an address into ordered candidate addresses.
type Resolver interface {
	// Resolve returns at least one candidate or an error.
	Resolve(ctx context.Context, address string) ([]netip.AddrPort, error)
}

// DNSResolver resolves "host:port" specs. IP literals are returned as-is
// without touching the network.
type DNSResolver struct {
	// Resolver performs the lookups. Nil selects net.DefaultResolver.
	Resolver *net.Resolver
}

// Resolve implements Resolver.
func (r *DNSResolver) Resolve(ctx context.Context, address string) ([]netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}
	if host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidAddress, address)
	}

	port, err := r.lookupPort(ctx, portStr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(ip.Unmap(), port)}, nil
	}

	ips, err := r.resolver().LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%q: %w", address, ErrUnresolved)
	}

	addrs := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, netip.AddrPortFrom(ip.Unmap(), port))
	}
	return addrs, nil
}

func (r *DNSResolver) resolver() *net.Resolver {
	if r.Resolver != nil {
		return r.Resolver
	}
	return net.DefaultResolver
}

// lookupPort accepts a decimal port or a service name. Port 0 cannot be
// connected to and is rejected.
func (r *DNSResolver) lookupPort(ctx context.Context, s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		p, lerr := r.resolver().LookupPort(ctx, "tcp", s)
		if lerr != nil {
			return 0, lerr
		}
		n = uint64(p)
	}
	if n == 0 || n > 0xffff {
		return 0, fmt.Errorf("port %s out of range", s)
	}
	return uint16(n), nil
}

// Auto dispatches DNS-SD specs to MDNS and everything else to DNS.
type Auto struct {
	DNS  Resolver
	MDNS Resolver
}

// NewAuto returns an Auto resolver with default DNS and mDNS resolvers.
func NewAuto() *Auto {
	return &Auto{
		DNS:  &DNSResolver{},
		MDNS: NewMDNSResolver(MDNSConfig{}),
	}
}

// Resolve implements Resolver.
func (a *Auto) Resolve(ctx context.Context, address string) ([]netip.AddrPort, error) {
	if IsServiceInstance(address) {
		return a.MDNS.Resolve(ctx, address)
	}
	return a.DNS.Resolve(ctx, address)
}

// Static always returns the same candidates. Useful for pinned endpoints
// and tests.
type Static []netip.AddrPort

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, address string) ([]netip.AddrPort, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%q: %w", address, ErrUnresolved)
	}
	return append([]netip.AddrPort(nil), s...), nil
}

// IsServiceInstance reports whether address names a DNS-SD service instance
// ("Instance._service._tcp.local").
func IsServiceInstance(address string) bool {
	_, _, _, err := ParseServiceInstance(address)
	return err == nil
}

// ParseServiceInstance splits "Instance._service._proto.domain" into its
// instance name, service type ("_service._proto") and domain ("local.").
func ParseServiceInstance(address string) (instance, service, domain string, err error) {
	i := strings.Index(address, "._")
	if i <= 0 {
		return "", "", "", fmt.Errorf("%w %q: not a service instance", ErrInvalidAddress, address)
	}
	instance = address[:i]
	rest := strings.TrimSuffix(address[i+1:], ".")

	labels := strings.Split(rest, ".")
	if len(labels) < 3 || !strings.HasPrefix(labels[0], "_") ||
		(labels[1] != "_tcp" && labels[1] != "_udp") {
		return "", "", "", fmt.Errorf("%w %q: not a service instance", ErrInvalidAddress, address)
	}

	service = labels[0] + "." + labels[1]
	domain = strings.Join(labels[2:], ".") + "."
	return instance, service, domain, nil
}

var (
	_ Resolver = (*DNSResolver)(nil)
	_ Resolver = (*Auto)(nil)
	_ Resolver = Static(nil)
)
