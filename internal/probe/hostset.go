package probe

import (
	"fmt"
	"sync/atomic"
)

// HostSet is an ordered, fixed list of independent probe hosts. Rotation
// is strict round-robin so no single host's outage can masquerade as a
// local connectivity problem. Safe for concurrent use; the host list is
// read-only after construction.
type HostSet struct {
	hosts []string
	next  uint64
}

// NewHostSet builds a rotation over the given hosts. At least two hosts
// are required so a single host outage is never mistaken for being offline.
func NewHostSet(hosts []string) (*HostSet, error) {
	if len(hosts) < 2 {
		return nil, fmt.Errorf("host set needs at least 2 hosts, got %d", len(hosts))
	}
	owned := append([]string(nil), hosts...)
	return &HostSet{hosts: owned}, nil
}

// Next returns the next host in rotation.
func (h *HostSet) Next() string {
	n := atomic.AddUint64(&h.next, 1) - 1
	return h.hosts[n%uint64(len(h.hosts))]
}

// Hosts returns a copy of the configured host list.
func (h *HostSet) Hosts() []string {
	return append([]string(nil), h.hosts...)
}
