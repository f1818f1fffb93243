// Package chainsdk declares the collaborator interfaces the settlement
// executor uses to open channels and sign claims on each supported chain.
// Concrete implementations (rippled, EVM JSON-RPC, Aptos REST clients) are
// host-application responsibility; this package never implements blockchain
// RPC itself.
package chainsdk

import (
	"context"

	"github.com/shopspring/decimal"
)

// EvmSettlementSdk opens payment channels and signs claims on an EVM chain.
type EvmSettlementSdk interface {
	OpenChannel(ctx context.Context, peer string, amount decimal.Decimal) (channelID string, err error)
	SignClaim(ctx context.Context, channelID string, transferredAmount, lockedAmount decimal.Decimal, locksRoot string, nonce uint64) (signature string, err error)
}

// XrpChannelManager opens payment channels on the XRP ledger.
type XrpChannelManager interface {
	CreateChannel(ctx context.Context, peer string, amount decimal.Decimal) (channelID64Hex string, err error)
}

// XrpClaimSigner signs XRP payment-channel claims.
type XrpClaimSigner interface {
	SignClaim(ctx context.Context, channelID string, amount decimal.Decimal) (signatureHex string, err error)
	PublicKey() string // "ED" + 64-hex
}

// AptosSignedClaim is the result of signing an Aptos payment-channel claim.
type AptosSignedClaim struct {
	ChannelOwner string
	Amount       decimal.Decimal
	Nonce        uint64
	Signature    string
	PublicKey    string
}

// AptosChannel describes one channel known to an AptosSettlementSdk.
type AptosChannel struct {
	ChannelOwner string
	Balance      decimal.Decimal
}

// AptosSettlementSdk opens payment channels and signs claims on Aptos.
type AptosSettlementSdk interface {
	OpenChannel(ctx context.Context, peer string, amount decimal.Decimal) (channelID string, err error)
	SignClaim(ctx context.Context, channelOwner string, amount decimal.Decimal, nonce uint64) (AptosSignedClaim, error)
	GetMyChannels(ctx context.Context) ([]AptosChannel, error)
}
