package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ilpconnector/core/chainsdk"
	"github.com/ilpconnector/core/claim"
	"github.com/ilpconnector/core/claimsender"
	"github.com/ilpconnector/core/telemetry"
)

// zeroLocksRoot is used for EVM claims that transfer the entire channel
// balance and lock nothing further.
const zeroLocksRoot = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ChainSDKs groups the optional per-chain collaborators the executor uses to
// open channels and sign claims. A nil field means that chain is not
// configured on this node.
type ChainSDKs struct {
	Evm        chainsdk.EvmSettlementSdk
	XrpChannels chainsdk.XrpChannelManager
	XrpSigner  chainsdk.XrpClaimSigner
	Aptos      chainsdk.AptosSettlementSdk
}

type chainChannel struct {
	state     ChannelState
	channelID string
	nonce     uint64
}

type peerRuntime struct {
	mu       sync.Mutex
	channels map[claim.Blockchain]*chainChannel
}

func (r *peerRuntime) channelFor(chain claim.Blockchain) *chainChannel {
	c, ok := r.channels[chain]
	if !ok {
		c = &chainChannel{state: None}
		r.channels[chain] = c
	}
	return c
}

// Executor is the unified settlement executor: it consumes
// SETTLEMENT_REQUIRED events, routes them to a chain, opens/reuses a
// channel, signs a claim, dispatches it, and records the result.
type Executor struct {
	NodeID       string
	Monitor      SettlementMonitor
	Chains       ChainSDKs
	Sender       *claimsender.Sender
	Accounts     Accounts
	Configs      func(peerID string) (PeerConfig, bool)
	Telemetry    telemetry.Telemetry // optional; SettlementStarted/SettlementFailed events
	OwnEvmAddress string // embedded as signerAddress on EVM claims

	mu     sync.Mutex
	peers  map[string]*peerRuntime
	queues map[string]chan SettlementRequired

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Executor. configs resolves a peerId to its settlement
// configuration. sink may be nil to disable SettlementStarted/
// SettlementFailed telemetry.
func New(nodeID string, monitor SettlementMonitor, chains ChainSDKs, sender *claimsender.Sender, accounts Accounts, configs func(string) (PeerConfig, bool), sink telemetry.Telemetry) *Executor {
	return &Executor{
		NodeID:    nodeID,
		Monitor:   monitor,
		Chains:    chains,
		Sender:    sender,
		Accounts:  accounts,
		Configs:   configs,
		Telemetry: sink,
		peers:     make(map[string]*peerRuntime),
		queues:    make(map[string]chan SettlementRequired),
		stopCh:    make(chan struct{}),
	}
}

// Start subscribes to the monitor and begins dispatching events to per-peer
// workers. Events for the same peer are processed in arrival order; events
// for distinct peers run concurrently.
func (e *Executor) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case ev, ok := <-e.Monitor.Events():
				if !ok {
					return
				}
				e.dispatch(ctx, ev)
			case <-e.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop unsubscribes and waits for every in-flight handler and worker to
// finish its current event. It does not cancel the context passed to Start,
// so a handler suspended in the claim sender's retry loop keeps retrying
// until that send completes.
func (e *Executor) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *Executor) dispatch(ctx context.Context, ev SettlementRequired) {
	e.mu.Lock()
	q, ok := e.queues[ev.PeerID]
	if !ok {
		q = make(chan SettlementRequired, 64)
		e.queues[ev.PeerID] = q
		e.wg.Add(1)
		go e.peerWorker(ctx, q)
	}
	e.mu.Unlock()

	select {
	case q <- ev:
	case <-ctx.Done():
	}
}

func (e *Executor) peerWorker(ctx context.Context, q chan SettlementRequired) {
	defer e.wg.Done()
	for {
		select {
		case ev, ok := <-q:
			if !ok {
				return
			}
			if err := e.handleSettlementRequired(ctx, ev); err != nil {
				slog.Error("settlement: handling SETTLEMENT_REQUIRED failed", "peerId", ev.PeerID, "err", err)
			}
		case <-e.stopCh:
			return
		}
	}
}

func (e *Executor) runtimeFor(peerID string) *peerRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.peers[peerID]
	if !ok {
		r = &peerRuntime{channels: make(map[claim.Blockchain]*chainChannel)}
		e.peers[peerID] = r
	}
	return r
}

// handleSettlementRequired implements the six-step settlement algorithm.
// SDK failures are returned to the caller; persistence/telemetry/accounts
// failures are logged and swallowed. A SettlementStarted event is emitted
// when processing begins and a SettlementFailed event when it returns an
// error; a successful send is reported separately by the sender's own
// ClaimSent event.
func (e *Executor) handleSettlementRequired(ctx context.Context, ev SettlementRequired) error {
	start := time.Now()
	e.emitTelemetry(telemetry.Event{
		Type:       telemetry.SettlementStarted,
		NodeID:     e.NodeID,
		PeerID:     ev.PeerID,
		Blockchain: string(resolveChain(ev.TokenID)),
		Amount:     ev.Balance.String(),
		Success:    true,
	})

	cfg, ok := e.Configs(ev.PeerID)
	if !ok {
		return e.fail(ev, "", start, &ConfigError{PeerID: ev.PeerID, Reason: "unknown peer"})
	}

	if !cfg.AcceptsToken(ev.TokenID) {
		return e.fail(ev, "", start, &ConfigError{PeerID: ev.PeerID, Reason: fmt.Sprintf("No compatible settlement method: token %q not accepted", ev.TokenID)})
	}

	chain := resolveChain(ev.TokenID)
	if e.sdkMissing(chain) || addressMissing(cfg, chain) {
		return e.fail(ev, chain, start, &ConfigError{PeerID: ev.PeerID, Reason: fmt.Sprintf("No compatible settlement method: chain %q has no configured SDK or address", chain)})
	}

	runtime := e.runtimeFor(ev.PeerID)
	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	ch := runtime.channelFor(chain)

	if ch.channelID == "" {
		ch.state = ChannelOpening
		channelID, err := e.openChannel(ctx, cfg, chain, ev.Balance)
		if err != nil {
			return e.fail(ev, chain, start, fmt.Errorf("opening %s channel for peer %q: %w", chain, ev.PeerID, err))
		}
		ch.channelID = channelID
		ch.state = Active
	}

	msg, channelIdentifier, nonce, err := e.signClaim(ctx, cfg, chain, ch, ev.Balance)
	if err != nil {
		return e.fail(ev, chain, start, fmt.Errorf("signing %s claim for peer %q: %w", chain, ev.PeerID, err))
	}

	result := e.Sender.Send(ctx, claimsender.Request{
		PeerID:            ev.PeerID,
		Peer:              cfg.Peer,
		Blockchain:        chain,
		ChannelIdentifier: channelIdentifier,
		Nonce:             nonce,
		SenderID:          e.NodeID,
		Amount:            ev.Balance,
		Build:             func(common claim.Common) claim.Message { return msg(common) },
	})

	ch.state = Settled

	if e.Accounts != nil {
		if err := e.Accounts.RecordSettlement(ev.PeerID, chain, ev.Balance); err != nil {
			slog.Error("settlement: recording settlement failed", "peerId", ev.PeerID, "chain", chain, "err", err)
		}
	}

	if !result.Success {
		slog.Warn("settlement: claim send did not succeed after retries", "peerId", ev.PeerID, "chain", chain, "messageId", result.MessageID)
	}

	ch.state = Active
	return nil
}

// fail emits a SettlementFailed event covering the elapsed time since start
// and returns err unchanged, so callers can write "return e.fail(...)".
func (e *Executor) fail(ev SettlementRequired, chain claim.Blockchain, start time.Time, err error) error {
	e.emitTelemetry(telemetry.Event{
		Type:       telemetry.SettlementFailed,
		NodeID:     e.NodeID,
		PeerID:     ev.PeerID,
		Blockchain: string(chain),
		Amount:     ev.Balance.String(),
		Success:    false,
		Error:      err.Error(),
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
	})
	return err
}

func (e *Executor) emitTelemetry(event telemetry.Event) {
	if e.Telemetry != nil {
		e.Telemetry.Emit(event)
	}
}

func (e *Executor) openChannel(ctx context.Context, cfg PeerConfig, chain claim.Blockchain, balance decimal.Decimal) (string, error) {
	switch chain {
	case claim.Evm:
		return e.Chains.Evm.OpenChannel(ctx, cfg.EvmAddress, balance)
	case claim.Xrp:
		return e.Chains.XrpChannels.CreateChannel(ctx, cfg.XrpAddress, balance)
	case claim.Aptos:
		return e.Chains.Aptos.OpenChannel(ctx, cfg.AptosAddress, balance)
	default:
		return "", fmt.Errorf("unsupported chain %q", chain)
	}
}

// signClaim signs a claim for the given chain/channel and returns a
// constructor for the final claim.Message (messageId/timestamp filled in by
// the caller), the identifier that feeds the message-id scheme, and the
// nonce to embed in the message id (nil for XRP).
func (e *Executor) signClaim(ctx context.Context, cfg PeerConfig, chain claim.Blockchain, ch *chainChannel, balance decimal.Decimal) (func(claim.Common) claim.Message, string, *uint64, error) {
	switch chain {
	case claim.Evm:
		nonce := ch.nonce
		ch.nonce++
		signature, err := e.Chains.Evm.SignClaim(ctx, ch.channelID, balance, decimal.Zero, zeroLocksRoot, nonce)
		if err != nil {
			return nil, "", nil, err
		}
		build := func(common claim.Common) claim.Message {
			return claim.EvmClaim{
				Common:            common,
				ChannelID:         ch.channelID,
				Nonce:             nonce,
				TransferredAmount: balance,
				LockedAmount:      decimal.Zero,
				LocksRoot:         zeroLocksRoot,
				Signature:         signature,
				SignerAddress:     e.OwnEvmAddress,
			}
		}
		return build, ch.channelID, &nonce, nil

	case claim.Xrp:
		signature, err := e.Chains.XrpSigner.SignClaim(ctx, ch.channelID, balance)
		if err != nil {
			return nil, "", nil, err
		}
		publicKey := e.Chains.XrpSigner.PublicKey()
		build := func(common claim.Common) claim.Message {
			return claim.XrpClaim{
				Common:    common,
				ChannelID: ch.channelID,
				Amount:    balance,
				Signature: signature,
				PublicKey: publicKey,
			}
		}
		return build, ch.channelID, nil, nil

	case claim.Aptos:
		nonce := ch.nonce
		ch.nonce++
		signed, err := e.Chains.Aptos.SignClaim(ctx, ch.channelID, balance, nonce)
		if err != nil {
			return nil, "", nil, err
		}
		build := func(common claim.Common) claim.Message {
			return claim.AptosClaim{
				Common:       common,
				ChannelOwner: signed.ChannelOwner,
				Amount:       signed.Amount,
				Nonce:        signed.Nonce,
				Signature:    signed.Signature,
				PublicKey:    signed.PublicKey,
			}
		}
		return build, ch.channelID, &nonce, nil

	default:
		return nil, "", nil, fmt.Errorf("unsupported chain %q", chain)
	}
}

func (e *Executor) sdkMissing(chain claim.Blockchain) bool {
	switch chain {
	case claim.Evm:
		return e.Chains.Evm == nil
	case claim.Xrp:
		return e.Chains.XrpChannels == nil || e.Chains.XrpSigner == nil
	case claim.Aptos:
		return e.Chains.Aptos == nil
	default:
		return true
	}
}

func addressMissing(cfg PeerConfig, chain claim.Blockchain) bool {
	switch chain {
	case claim.Evm:
		return cfg.EvmAddress == ""
	case claim.Xrp:
		return cfg.XrpAddress == ""
	case claim.Aptos:
		return cfg.AptosAddress == ""
	default:
		return true
	}
}
