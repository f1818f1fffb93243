// Package claimsender dispatches payment-channel claims to a connected peer
// with idempotent persistence, bounded retry, and telemetry emission.
package claimsender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilpconnector/core/claim"
	"github.com/ilpconnector/core/peer"
	"github.com/ilpconnector/core/persist"
	"github.com/ilpconnector/core/telemetry"
)

// TransportError reports that a peer handle failed to accept a claim after
// exhausting every retry attempt.
type TransportError struct {
	PeerID  string
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sending to peer %q failed on attempt %d: %v", e.PeerID, e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// protocolDataName is the BTP protocol-data entry name claims are wrapped in.
const protocolDataName = "payment-channel-claim"

// protocolDataContentType is the BTP protocol-data content type for
// JSON-encoded claims.
const protocolDataContentType uint16 = 1

// BuildClaim constructs the chain-specific claim message once Common (with
// its messageId and timestamp already assigned) is known.
type BuildClaim func(common claim.Common) claim.Message

// Request describes one claim to send.
type Request struct {
	PeerID            string
	Peer              peer.Handle
	Blockchain        claim.Blockchain
	ChannelIdentifier string // channelId or channelOwner; first 8 chars feed the message id
	Nonce             *uint64 // nil for XRP, set for EVM/Aptos
	SenderID          string
	Amount            decimal.Decimal // for telemetry only
	Build             BuildClaim
}

// Result is the outcome of one Send call.
type Result struct {
	Success   bool
	MessageID string
	Timestamp time.Time
	Error     error
}

// Sender dispatches claims with retry, persistence and telemetry.
type Sender struct {
	NodeID    string
	Store     persist.Store
	Telemetry telemetry.Telemetry
	Policy    RetryPolicy

	now   func() time.Time
	sleep sleepFunc
}

// New builds a Sender using the default 1s/2s/4s retry policy.
func New(nodeID string, store persist.Store, sink telemetry.Telemetry) *Sender {
	return &Sender{
		NodeID:    nodeID,
		Store:     store,
		Telemetry: sink,
		Policy:    DefaultRetryPolicy,
		now:       time.Now,
		sleep:     realSleep,
	}
}

// Send builds the canonical claim, transmits it over req.Peer with retry,
// then persists and emits telemetry for the final outcome. It never returns
// a Go error: delivery failure is reported via Result.Error.
func (s *Sender) Send(ctx context.Context, req Request) Result {
	start := time.Now()
	now := s.clock()
	messageID := buildMessageID(req.Blockchain, req.ChannelIdentifier, req.Nonce, now)

	common := claim.Common{
		Version:   claim.Version,
		MessageID: messageID,
		Timestamp: now.UTC(),
		SenderID:  req.SenderID,
	}
	msg := req.Build(common)

	payload, err := claim.Serialize(msg)
	if err != nil {
		result := Result{Success: false, MessageID: messageID, Timestamp: now, Error: fmt.Errorf("serializing claim: %w", err)}
		s.finish(req, result, payload, time.Since(start))
		return result
	}

	sleep := s.sleep
	if sleep == nil {
		sleep = realSleep
	}
	policy := s.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy
	}

	var lastAttempt int
	sendErr, _ := policy.run(ctx, sleep, func(attempt int) error {
		lastAttempt = attempt
		return req.Peer.SendProtocolData(ctx, protocolDataName, protocolDataContentType, payload)
	})

	var resultErr error
	if sendErr != nil {
		resultErr = &TransportError{PeerID: req.PeerID, Attempt: lastAttempt, Err: sendErr}
	}

	result := Result{
		Success:   sendErr == nil,
		MessageID: messageID,
		Timestamp: now,
		Error:     resultErr,
	}
	s.finish(req, result, payload, time.Since(start))
	return result
}

// finish persists the send outcome and emits telemetry; both are best-effort
// and never alter the returned Result.
func (s *Sender) finish(req Request, result Result, payload []byte, elapsed time.Duration) {
	if s.Store != nil {
		err := s.Store.InsertSentClaim(persist.SentClaim{
			MessageID:   result.MessageID,
			PeerID:      req.PeerID,
			Blockchain:  string(req.Blockchain),
			PayloadJSON: string(payload),
			CreatedAtMs: result.Timestamp.UnixMilli(),
		})
		if err != nil {
			if _, ok := err.(*persist.Conflict); ok {
				slog.Warn("claimsender: duplicate messageId, treating as already sent", "messageId", result.MessageID)
			} else {
				slog.Error("claimsender: failed to persist sent claim", "messageId", result.MessageID, "err", err)
			}
		}
	}

	if s.Telemetry != nil {
		event := telemetry.Event{
			Type:       telemetry.ClaimSent,
			NodeID:     s.NodeID,
			PeerID:     req.PeerID,
			Blockchain: string(req.Blockchain),
			MessageID:  result.MessageID,
			Amount:     req.Amount.String(),
			Success:    result.Success,
			DurationMs: float64(elapsed.Microseconds()) / 1000,
		}
		if result.Error != nil {
			event.Error = result.Error.Error()
		}
		s.Telemetry.Emit(event)
	}
}

func (s *Sender) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// buildMessageID implements the "{chain}-{first-8-of-channel-identifier}-
// {nonceOrSlash}-{millis}" scheme. Two sends for the same
// (peer, chain, channel, nonce) within one millisecond collide by design;
// the caller is expected to treat the resulting persistence conflict as
// idempotent.
func buildMessageID(blockchain claim.Blockchain, channelIdentifier string, nonce *uint64, now time.Time) string {
	first8 := channelIdentifier
	if len(first8) > 8 {
		first8 = first8[:8]
	}

	nonceOrSlash := "n/a"
	if nonce != nil {
		nonceOrSlash = fmt.Sprintf("%d", *nonce)
	}

	return fmt.Sprintf("%s-%s-%s-%d", blockchain, first8, nonceOrSlash, now.UnixMilli())
}
