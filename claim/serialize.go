package claim

import "encoding/json"

// Serialize renders m to its canonical JSON encoding in UTF-8. Unknown
// fields are never emitted; every defined field for the variant is present.
func Serialize(m Message) ([]byte, error) {
	switch v := m.(type) {
	case XrpClaim:
		return json.Marshal(struct {
			Version     string `json:"version"`
			Blockchain  string `json:"blockchain"`
			MessageID   string `json:"messageId"`
			Timestamp   string `json:"timestamp"`
			SenderID    string `json:"senderId"`
			ChannelID   string `json:"channelId"`
			Amount      string `json:"amount"`
			Signature   string `json:"signature"`
			PublicKey   string `json:"publicKey"`
		}{
			Version:    v.Common.Version,
			Blockchain: string(Xrp),
			MessageID:  v.Common.MessageID,
			Timestamp:  v.Common.Timestamp.UTC().Format(timestampLayout),
			SenderID:   v.Common.SenderID,
			ChannelID:  v.ChannelID,
			Amount:     v.Amount.String(),
			Signature:  v.Signature,
			PublicKey:  v.PublicKey,
		})
	case EvmClaim:
		return json.Marshal(struct {
			Version           string `json:"version"`
			Blockchain        string `json:"blockchain"`
			MessageID         string `json:"messageId"`
			Timestamp         string `json:"timestamp"`
			SenderID          string `json:"senderId"`
			ChannelID         string `json:"channelId"`
			Nonce             uint64 `json:"nonce"`
			TransferredAmount string `json:"transferredAmount"`
			LockedAmount      string `json:"lockedAmount"`
			LocksRoot         string `json:"locksRoot"`
			Signature         string `json:"signature"`
			SignerAddress     string `json:"signerAddress"`
		}{
			Version:           v.Common.Version,
			Blockchain:        string(Evm),
			MessageID:         v.Common.MessageID,
			Timestamp:         v.Common.Timestamp.UTC().Format(timestampLayout),
			SenderID:          v.Common.SenderID,
			ChannelID:         v.ChannelID,
			Nonce:             v.Nonce,
			TransferredAmount: v.TransferredAmount.String(),
			LockedAmount:      v.LockedAmount.String(),
			LocksRoot:         v.LocksRoot,
			Signature:         v.Signature,
			SignerAddress:     v.SignerAddress,
		})
	case AptosClaim:
		return json.Marshal(struct {
			Version      string `json:"version"`
			Blockchain   string `json:"blockchain"`
			MessageID    string `json:"messageId"`
			Timestamp    string `json:"timestamp"`
			SenderID     string `json:"senderId"`
			ChannelOwner string `json:"channelOwner"`
			Amount       string `json:"amount"`
			Nonce        uint64 `json:"nonce"`
			Signature    string `json:"signature"`
			PublicKey    string `json:"publicKey"`
		}{
			Version:      v.Common.Version,
			Blockchain:   string(Aptos),
			MessageID:    v.Common.MessageID,
			Timestamp:    v.Common.Timestamp.UTC().Format(timestampLayout),
			SenderID:     v.Common.SenderID,
			ChannelOwner: v.ChannelOwner,
			Amount:       v.Amount.String(),
			Nonce:        v.Nonce,
			Signature:    v.Signature,
			PublicKey:    v.PublicKey,
		})
	default:
		return nil, invalid("unknown claim message type %T", m)
	}
}
