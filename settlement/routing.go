package settlement

import "strings"

// RoutingTable resolves an ILP address to the peer that should receive
// traffic for it. The executor never computes routes itself; this is a
// collaborator contract with a trivial reference implementation.
type RoutingTable interface {
	Lookup(address string) (peerID string, ok bool)
}

// StaticRoutingTable is a longest-matching-prefix reference RoutingTable
// keyed by dot-separated ILP address prefixes (e.g. "g.peer.bob").
type StaticRoutingTable struct {
	routes map[string]string
}

// NewStaticRoutingTable builds a StaticRoutingTable from a prefix-to-peer map.
func NewStaticRoutingTable(routes map[string]string) *StaticRoutingTable {
	copied := make(map[string]string, len(routes))
	for k, v := range routes {
		copied[k] = v
	}
	return &StaticRoutingTable{routes: copied}
}

// Lookup returns the peer registered for the longest prefix of address that
// matches a configured route, splitting on '.' segment boundaries.
func (t *StaticRoutingTable) Lookup(address string) (string, bool) {
	segments := strings.Split(address, ".")
	for end := len(segments); end > 0; end-- {
		prefix := strings.Join(segments[:end], ".")
		if peerID, ok := t.routes[prefix]; ok {
			return peerID, true
		}
	}
	return "", false
}
