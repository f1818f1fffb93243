// Package claim implements the payment-channel claim message family: a
// typed, blockchain-discriminated set of messages with strict field-shape
// validation and JSON transport.
package claim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Blockchain discriminates the claim message variants.
type Blockchain string

const (
	Xrp   Blockchain = "xrp"
	Evm   Blockchain = "evm"
	Aptos Blockchain = "aptos"
)

// Version is the only claim protocol version this package accepts.
const Version = "1.0"

// Common holds the fields shared by every claim variant.
type Common struct {
	Version   string
	MessageID string
	Timestamp time.Time
	SenderID  string
}

// Message is the discriminated claim union. Concrete implementations are
// XrpClaim, EvmClaim, and AptosClaim.
type Message interface {
	Blockchain() Blockchain
	common() Common
}

// XrpClaim authorizes withdrawal from an XRP payment channel.
type XrpClaim struct {
	Common    Common
	ChannelID string // 64-hex
	Amount    decimal.Decimal // positive drops
	Signature string // 128-hex
	PublicKey string // "ED" + 64-hex
}

func (c XrpClaim) Blockchain() Blockchain { return Xrp }
func (c XrpClaim) common() Common         { return c.Common }

// EvmClaim authorizes withdrawal from an EVM (EIP-7824-style) payment channel.
type EvmClaim struct {
	Common            Common
	ChannelID         string // 0x + 64-hex
	Nonce             uint64
	TransferredAmount decimal.Decimal // wei, >= 0
	LockedAmount      decimal.Decimal // wei
	LocksRoot         string          // 0x + 64-hex
	Signature         string          // 0x + 130-hex (r||s||v)
	SignerAddress     string          // 0x + 40-hex
}

func (c EvmClaim) Blockchain() Blockchain { return Evm }
func (c EvmClaim) common() Common         { return c.Common }

// AptosClaim authorizes withdrawal from an Aptos payment channel.
type AptosClaim struct {
	Common       Common
	ChannelOwner string // 0x + hex
	Amount       decimal.Decimal // positive octas
	Nonce        uint64
	Signature    string // hex
	PublicKey    string // hex
}

func (c AptosClaim) Blockchain() Blockchain { return Aptos }
func (c AptosClaim) common() Common         { return c.Common }

// IsXrp narrows m to its XrpClaim variant.
func IsXrp(m Message) (XrpClaim, bool) {
	v, ok := m.(XrpClaim)
	return v, ok
}

// IsEvm narrows m to its EvmClaim variant.
func IsEvm(m Message) (EvmClaim, bool) {
	v, ok := m.(EvmClaim)
	return v, ok
}

// IsAptos narrows m to its AptosClaim variant.
func IsAptos(m Message) (AptosClaim, bool) {
	v, ok := m.(AptosClaim)
	return v, ok
}

// InvalidClaim reports a structural or shape validation failure.
type InvalidClaim struct {
	Reason string
}

func (e *InvalidClaim) Error() string {
	return fmt.Sprintf("invalid claim: %s", e.Reason)
}

func invalid(format string, args ...any) *InvalidClaim {
	return &InvalidClaim{Reason: fmt.Sprintf(format, args...)}
}
