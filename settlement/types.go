// Package settlement implements the event-driven executor that turns a
// peer's balance crossing a threshold into an opened/cached payment channel,
// a signed claim, and a dispatched, persisted, telemetered send.
package settlement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilpconnector/core/claim"
	"github.com/ilpconnector/core/peer"
)

// ChannelState is a (peer, chain) settlement channel's lifecycle phase.
type ChannelState int

const (
	None ChannelState = iota
	ChannelOpening
	Active
	Settled
)

func (s ChannelState) String() string {
	switch s {
	case None:
		return "none"
	case ChannelOpening:
		return "channel_opening"
	case Active:
		return "active"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Preference is a peer's declared settlement chain preference.
type Preference string

const (
	PreferEvm   Preference = "evm"
	PreferXrp   Preference = "xrp"
	PreferAptos Preference = "aptos"
	PreferAny   Preference = "any"
)

// PeerConfig describes one peer's settlement configuration: which chains it
// accepts, its addresses on each, and the handle used to transmit claims.
type PeerConfig struct {
	PeerID               string
	Address              string
	SettlementPreference Preference
	SettlementTokens      map[string]struct{}
	EvmAddress           string
	XrpAddress           string
	AptosAddress         string
	AptosPubkey          string
	Peer                 peer.Handle
}

// AcceptsToken reports whether tokenID is among the peer's configured
// settlement tokens.
func (c PeerConfig) AcceptsToken(tokenID string) bool {
	_, ok := c.SettlementTokens[tokenID]
	return ok
}

// SettlementRequired is the inbound event reporting that a peer's account
// balance crossed the configured threshold for tokenID.
type SettlementRequired struct {
	PeerID    string
	Balance   decimal.Decimal
	TokenID   string
	Timestamp time.Time
}

// SettlementMonitor is the channel-based event source the executor
// subscribes to; a callback-style API was deliberately rejected in favor of
// a plain receive channel.
type SettlementMonitor interface {
	Events() <-chan SettlementRequired
}

// Accounts records a completed settlement against a peer's ledger balance.
type Accounts interface {
	RecordSettlement(peerID string, blockchain claim.Blockchain, amount decimal.Decimal) error
}

// ConfigError reports that no compatible settlement method exists for an
// event: the peer is unknown, excludes the resolved chain, or lacks the
// chain-specific address/SDK needed to act on it.
type ConfigError struct {
	PeerID string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("settlement config error for peer %q: %s", e.PeerID, e.Reason)
}

// resolveChain maps a token identifier to the chain that settles it: "XRP"
// settles on XRP, "APT" settles on Aptos, everything else is treated as an
// EVM token address.
func resolveChain(tokenID string) claim.Blockchain {
	switch tokenID {
	case "XRP":
		return claim.Xrp
	case "APT":
		return claim.Aptos
	default:
		return claim.Evm
	}
}
