package network

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"slices"

	"go.uber.org/zap"
)

// Enumerator lists every address assigned to the host's adapters
type Enumerator interface {
	Addresses(ctx context.Context) ([]netip.Addr, error)
}

// Snapshot is the sorted, deduplicated set of IPv4 addresses observed at one
// poll. It never contains loopback or multicast addresses.
type Snapshot []netip.Addr

// Strings returns the addresses in text form
func (s Snapshot) Strings() []string {
	out := make([]string, len(s))
	for i, a := range s {
		out[i] = a.String()
	}
	return out
}

// Equal reports whether both snapshots hold the same addresses
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s, o)
}

// NewSnapshot sorts and deduplicates addrs, keeping only IPv4 addresses that
// are neither loopback nor multicast. IPv4-mapped IPv6 addresses are unmapped
// first. The input slice is not modified.
func NewSnapshot(addrs []netip.Addr) Snapshot {
	all := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		if a.IsValid() {
			all = append(all, a.Unmap())
		}
	}

	slices.SortFunc(all, netip.Addr.Compare)
	all = slices.Compact(all)

	snap := make(Snapshot, 0, len(all))
	for _, a := range all {
		if a.Is4() && !a.IsLoopback() && !a.IsMulticast() {
			snap = append(snap, a)
		}
	}
	return snap
}

// SystemEnumerator reads addresses from the operating system
type SystemEnumerator struct {
	logger *zap.Logger
}

// NewSystemEnumerator creates an enumerator backed by net.Interfaces
func NewSystemEnumerator(logger *zap.Logger) *SystemEnumerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemEnumerator{logger: logger}
}

// Addresses returns every address of every adapter, duplicates included.
// An adapter whose addresses cannot be read is skipped with a warning.
func (e *SystemEnumerator) Addresses(ctx context.Context) ([]netip.Addr, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to get interfaces: %w", err)
	}

	var out []netip.Addr
	for _, iface := range interfaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addrs, err := iface.Addrs()
		if err != nil {
			e.logger.Warn("Failed to get addresses",
				zap.String("interface", iface.Name),
				zap.Error(err))
			continue
		}

		for _, addr := range addrs {
			if a, ok := addrFromNet(addr); ok {
				out = append(out, a)
			}
		}
	}

	return out, nil
}

func addrFromNet(addr net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	default:
		return netip.Addr{}, false
	}
	return netip.AddrFromSlice(ip)
}
