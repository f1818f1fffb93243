package claim

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

var (
	hex64    = regexp.MustCompile(`^[0-9A-Fa-f]{64}$`)
	hex128   = regexp.MustCompile(`^[0-9A-Fa-f]{128}$`)
	hexEd25  = regexp.MustCompile(`^ED[0-9A-Fa-f]{64}$`)
	hex0x64  = regexp.MustCompile(`^0x[0-9A-Fa-f]{64}$`)
	hex0x130 = regexp.MustCompile(`^0x[0-9A-Fa-f]{130}$`)
	hex0x    = regexp.MustCompile(`^0x[0-9A-Fa-f]+$`)
	hexAny   = regexp.MustCompile(`^[0-9A-Fa-f]+$`)
	decimalS = regexp.MustCompile(`^[0-9]+$`)
)

// rawClaim is the union of every field any claim variant may carry, used to
// decode the JSON once before dispatching to a chain-specific validator.
type rawClaim struct {
	Version    string `json:"version"`
	Blockchain string `json:"blockchain"`
	MessageID  string `json:"messageId"`
	Timestamp  string `json:"timestamp"`
	SenderID   string `json:"senderId"`

	ChannelID string `json:"channelId"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`

	Nonce             *json.Number `json:"nonce"`
	TransferredAmount string       `json:"transferredAmount"`
	LockedAmount      string       `json:"lockedAmount"`
	LocksRoot         string       `json:"locksRoot"`
	SignerAddress     string       `json:"signerAddress"`

	ChannelOwner string `json:"channelOwner"`
}

// Validate parses and validates a JSON-encoded claim message.
func Validate(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, invalid("claim JSON must be a non-null object")
	}
	if trimmed[0] != '{' {
		return nil, invalid("claim JSON must be an object")
	}

	var rc rawClaim
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, invalid("malformed claim JSON: %s", err)
	}

	if rc.Version != Version {
		return nil, invalid("Unsupported claim version: %s", rc.Version)
	}
	if strings.TrimSpace(rc.MessageID) == "" {
		return nil, invalid("messageId must not be empty")
	}
	if strings.TrimSpace(rc.SenderID) == "" {
		return nil, invalid("senderId must not be empty")
	}
	ts, err := parseTimestamp(rc.Timestamp)
	if err != nil {
		return nil, err
	}

	fields := Common{
		Version:   rc.Version,
		MessageID: rc.MessageID,
		Timestamp: ts,
		SenderID:  rc.SenderID,
	}

	switch Blockchain(rc.Blockchain) {
	case Xrp:
		return validateXrp(fields, rc)
	case Evm:
		return validateEvm(fields, rc)
	case Aptos:
		return validateAptos(fields, rc)
	default:
		return nil, invalid("unsupported blockchain: %q", rc.Blockchain)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, invalid("malformed timestamp %q: %s", s, err)
	}
	if t.UTC().Format(timestampLayout) != s {
		return time.Time{}, invalid("timestamp %q is not canonical ISO-8601", s)
	}
	return t.UTC(), nil
}

func validateXrp(fields Common, rc rawClaim) (Message, error) {
	if !hex64.MatchString(rc.ChannelID) {
		return nil, invalid("xrp channelId must be 64 hex characters")
	}
	amount, err := parsePositiveDecimal(rc.Amount, "xrp amount")
	if err != nil {
		return nil, err
	}
	if !hex128.MatchString(rc.Signature) {
		return nil, invalid("xrp signature must be 128 hex characters")
	}
	if !hexEd25.MatchString(rc.PublicKey) {
		return nil, invalid(`xrp publicKey must be "ED" followed by 64 hex characters`)
	}

	return XrpClaim{
		Common:    fields,
		ChannelID: strings.ToUpper(rc.ChannelID),
		Amount:    amount,
		Signature: strings.ToUpper(rc.Signature),
		PublicKey: "ED" + strings.ToUpper(rc.PublicKey[2:]),
	}, nil
}

func validateEvm(fields Common, rc rawClaim) (Message, error) {
	if !hex0x64.MatchString(rc.ChannelID) {
		return nil, invalid("evm channelId must be 0x + 64 hex characters")
	}
	nonce, err := parseNonNegativeInt(rc.Nonce, "evm nonce")
	if err != nil {
		return nil, err
	}
	transferred, err := parseNonNegativeDecimal(rc.TransferredAmount, "evm transferredAmount")
	if err != nil {
		return nil, err
	}
	locked, err := parseNonNegativeDecimal(rc.LockedAmount, "evm lockedAmount")
	if err != nil {
		return nil, err
	}
	if !hex0x64.MatchString(rc.LocksRoot) {
		return nil, invalid("evm locksRoot must be 0x + 64 hex characters")
	}
	if !hex0x130.MatchString(rc.Signature) {
		return nil, invalid("evm signature must be 0x + 130 hex characters (r||s||v)")
	}
	if !common.IsHexAddress(rc.SignerAddress) {
		return nil, invalid("evm signerAddress must be a valid 20-byte hex address")
	}

	return EvmClaim{
		Common:            fields,
		ChannelID:         rc.ChannelID,
		Nonce:             nonce,
		TransferredAmount: transferred,
		LockedAmount:      locked,
		LocksRoot:         rc.LocksRoot,
		Signature:         rc.Signature,
		SignerAddress:     common.HexToAddress(rc.SignerAddress).Hex(),
	}, nil
}

func validateAptos(fields Common, rc rawClaim) (Message, error) {
	if !hex0x.MatchString(rc.ChannelOwner) {
		return nil, invalid("aptos channelOwner must be 0x-prefixed hex")
	}
	amount, err := parsePositiveDecimal(rc.Amount, "aptos amount")
	if err != nil {
		return nil, err
	}
	nonce, err := parseNonNegativeInt(rc.Nonce, "aptos nonce")
	if err != nil {
		return nil, err
	}
	if !hexAny.MatchString(rc.Signature) {
		return nil, invalid("aptos signature must be hex")
	}
	if !hexAny.MatchString(rc.PublicKey) {
		return nil, invalid("aptos publicKey must be hex")
	}

	return AptosClaim{
		Common:       fields,
		ChannelOwner: rc.ChannelOwner,
		Amount:       amount,
		Nonce:        nonce,
		Signature:    rc.Signature,
		PublicKey:    rc.PublicKey,
	}, nil
}

func parsePositiveDecimal(s, field string) (decimal.Decimal, error) {
	d, err := parseNonNegativeDecimal(s, field)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !d.IsPositive() {
		return decimal.Decimal{}, invalid("%s must be positive", field)
	}
	return d, nil
}

func parseNonNegativeDecimal(s, field string) (decimal.Decimal, error) {
	if !decimalS.MatchString(s) {
		return decimal.Decimal{}, invalid("%s must be a base-10 integer string", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, invalid("%s is not a valid decimal: %s", field, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, invalid("%s must not be negative", field)
	}
	return d, nil
}

func parseNonNegativeInt(n *json.Number, field string) (uint64, error) {
	if n == nil {
		return 0, invalid("%s is required", field)
	}
	v, err := n.Int64()
	if err != nil || v < 0 {
		return 0, invalid("%s must be a non-negative integer", field)
	}
	return uint64(v), nil
}
