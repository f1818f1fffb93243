// Package peer declares the transport boundary the claim sender and BTP
// layer depend on. The core never speaks a concrete transport itself; a
// host application supplies a Handle per connected peer.
package peer

import "context"

// Handle sends one BTP protocol-data entry to a connected peer and reports
// whether the peer accepted it.
type Handle interface {
	SendProtocolData(ctx context.Context, name string, contentType uint16, data []byte) error
}
