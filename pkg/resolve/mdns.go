package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// DefaultBrowseTimeout bounds an mDNS lookup when the context has no
// deadline.
const DefaultBrowseTimeout = 3 * time.Second

// MDNSConfig configures an MDNSResolver.
type MDNSConfig struct {
	// Interface restricts browsing to one network interface. Empty means all.
	Interface string

	// BrowseTimeout bounds a lookup. Zero selects DefaultBrowseTimeout.
	BrowseTimeout time.Duration
}

// serviceEntry is the subset of an mDNS answer the resolver needs.
type serviceEntry struct {
	Instance string
	Port     int
	AddrIPv4 []net.IP
	AddrIPv6 []net.IP
}

// browseFunc streams service entries for service/domain into entries until
// ctx is done.
type browseFunc func(ctx context.Context, service, domain string, entries chan<- serviceEntry) error

// MDNSResolver resolves DNS-SD service instances via multicast DNS.
type MDNSResolver struct {
	config MDNSConfig
	browse browseFunc
}

// NewMDNSResolver creates an mDNS resolver backed by zeroconf.
func NewMDNSResolver(config MDNSConfig) *MDNSResolver {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	r := &MDNSResolver{config: config}
	r.browse = r.zeroconfBrowse
	return r
}

// Resolve implements Resolver. It browses for the instance's service type
// and returns the first matching instance's IPv4 then IPv6 addresses.
func (r *MDNSResolver) Resolve(ctx context.Context, address string) ([]netip.AddrPort, error) {
	instance, service, domain, err := ParseServiceInstance(address)
	if err != nil {
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.BrowseTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan serviceEntry)
	browseErr := make(chan error, 1)
	go func(errc chan<- error) {
		errc <- r.browse(ctx, service, domain, entries)
	}(browseErr)

	for {
		select {
		case entry := <-entries:
			if entry.Instance != instance {
				continue
			}
			if addrs := entryAddrs(entry); len(addrs) > 0 {
				return addrs, nil
			}
		case err := <-browseErr:
			if err != nil {
				return nil, fmt.Errorf("mdns browse %s: %w", service, err)
			}
			// Browse may return while answers are still arriving.
			browseErr = nil
		case <-ctx.Done():
			return nil, fmt.Errorf("%q: %w", address, ErrUnresolved)
		}
	}
}

func entryAddrs(e serviceEntry) []netip.AddrPort {
	if e.Port <= 0 || e.Port > 0xffff {
		return nil
	}
	port := uint16(e.Port)

	addrs := make([]netip.AddrPort, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
	for _, ips := range [][]net.IP{e.AddrIPv4, e.AddrIPv6} {
		for _, ip := range ips {
			addr, ok := netip.AddrFromSlice(ip)
			if !ok {
				continue
			}
			addrs = append(addrs, netip.AddrPortFrom(addr.Unmap(), port))
		}
	}
	return addrs
}

// zeroconfBrowse adapts zeroconf.Browse to browseFunc.
func (r *MDNSResolver) zeroconfBrowse(ctx context.Context, service, domain string, out chan<- serviceEntry) error {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func(removed <-chan *zeroconf.ServiceEntry) {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				select {
				case out <- serviceEntry{
					Instance: entry.Instance,
					Port:     entry.Port,
					AddrIPv4: entry.AddrIPv4,
					AddrIPv6: entry.AddrIPv6,
				}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-removed:
				if !ok {
					removed = nil
				}
			case <-ctx.Done():
				return
			}
		}
	}(removed)

	return zeroconf.Browse(ctx, service, domain, entries, removed, r.browserOptions()...)
}

// browserOptions returns zeroconf client options based on config.
func (r *MDNSResolver) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if r.config.Interface != "" {
		iface, err := net.InterfaceByName(r.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

var _ Resolver = (*MDNSResolver)(nil)
