package claimsender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ilpconnector/core/claim"
	"github.com/ilpconnector/core/persist"
	"github.com/ilpconnector/core/telemetry"
)

// fakePeer records every SendProtocolData call and returns the i-th
// configured result (clamped to the last entry once exhausted).
type fakePeer struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (p *fakePeer) SendProtocolData(ctx context.Context, name string, contentType uint16, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	if i >= len(p.results) {
		i = len(p.results) - 1
	}
	return p.results[i]
}

func buildXrpClaim(common claim.Common) claim.Message {
	return claim.XrpClaim{
		Common:    common,
		ChannelID: "ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF012345678",
		Amount:    decimal.NewFromInt(1000),
		Signature: "11111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111111",
		PublicKey: "ED" + "2222222222222222222222222222222222222222222222222222222222222222",
	}
}

func noSleep(ctx context.Context, d time.Duration) {}

func TestSendSuccess(t *testing.T) {
	store := persist.NewMemory()
	rec := telemetry.NewRecorder()
	s := New("node-1", store, rec)
	s.sleep = noSleep
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	peerHandle := &fakePeer{results: []error{nil}}

	result := s.Send(context.Background(), Request{
		PeerID:            "peer-a",
		Peer:              peerHandle,
		Blockchain:        claim.Xrp,
		ChannelIdentifier: "ABCDEF0123456789",
		SenderID:          "node-1",
		Amount:            decimal.NewFromInt(1000),
		Build:             buildXrpClaim,
	})

	require.True(t, result.Success)
	require.Equal(t, 1, peerHandle.calls)
	require.Equal(t, 1, store.Len())

	events := rec.Events()
	require.Len(t, events, 1)
	require.True(t, events[0].Success)
	require.Equal(t, telemetry.ClaimSent, events[0].Type)
}

func TestSendRetryThenSucceed(t *testing.T) {
	store := persist.NewMemory()
	rec := telemetry.NewRecorder()
	s := New("node-1", store, rec)

	var totalSleep time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) { totalSleep += d }
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	peerHandle := &fakePeer{results: []error{errors.New("timeout"), errors.New("timeout"), nil}}

	result := s.Send(context.Background(), Request{
		PeerID:            "peer-a",
		Peer:              peerHandle,
		Blockchain:        claim.Xrp,
		ChannelIdentifier: "ABCDEF0123456789",
		SenderID:          "node-1",
		Amount:            decimal.NewFromInt(1000),
		Build:             buildXrpClaim,
	})

	require.True(t, result.Success)
	require.Equal(t, 3, peerHandle.calls)
	require.Equal(t, 3*time.Second, totalSleep)
}

func TestSendAlwaysFails(t *testing.T) {
	store := persist.NewMemory()
	rec := telemetry.NewRecorder()
	s := New("node-1", store, rec)

	var totalSleep time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) { totalSleep += d }
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	peerHandle := &fakePeer{results: []error{errors.New("x"), errors.New("x"), errors.New("x")}}

	result := s.Send(context.Background(), Request{
		PeerID:            "peer-a",
		Peer:              peerHandle,
		Blockchain:        claim.Xrp,
		ChannelIdentifier: "ABCDEF0123456789",
		SenderID:          "node-1",
		Amount:            decimal.NewFromInt(1000),
		Build:             buildXrpClaim,
	})

	require.False(t, result.Success)
	require.Equal(t, 3, peerHandle.calls)
	require.Equal(t, 7*time.Second, totalSleep)

	events := rec.Events()
	failures := 0
	for _, e := range events {
		if !e.Success {
			failures++
		}
	}
	require.Equal(t, 1, failures)
}

func TestSendDuplicateMessageIDIsIdempotent(t *testing.T) {
	store := persist.NewMemory()
	rec := telemetry.NewRecorder()
	s := New("node-1", store, rec)
	s.sleep = noSleep
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	req := Request{
		PeerID:            "peer-a",
		Peer:              &fakePeer{results: []error{nil}},
		Blockchain:        claim.Xrp,
		ChannelIdentifier: "ABCDEF0123456789",
		SenderID:          "node-1",
		Amount:            decimal.NewFromInt(1000),
		Build:             buildXrpClaim,
	}

	first := s.Send(context.Background(), req)
	second := s.Send(context.Background(), req)

	require.Equal(t, first.MessageID, second.MessageID)
	require.True(t, first.Success)
	require.True(t, second.Success)
	require.Equal(t, 1, store.Len())
}

func TestBuildMessageIDScheme(t *testing.T) {
	now := time.UnixMilli(1700000000123).UTC()
	nonce := uint64(7)

	id := buildMessageID(claim.Evm, "0xabcdef0123456789", &nonce, now)
	require.Equal(t, "evm-0xabcdef-7-1700000000123", id)

	idXrp := buildMessageID(claim.Xrp, "ABCDEF0123456789", nil, now)
	require.Equal(t, "xrp-ABCDEF01-n/a-1700000000123", idXrp)
}
