package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ilpconnector/core/chainsdk"
	"github.com/ilpconnector/core/claim"
	"github.com/ilpconnector/core/claimsender"
	"github.com/ilpconnector/core/persist"
	"github.com/ilpconnector/core/telemetry"
)

type fakePeerHandle struct {
	mu    sync.Mutex
	sends int
}

func (f *fakePeerHandle) SendProtocolData(ctx context.Context, name string, contentType uint16, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return nil
}

type fakeEvmSdk struct {
	openCalls int
	signCalls int
}

func (s *fakeEvmSdk) OpenChannel(ctx context.Context, peer string, amount decimal.Decimal) (string, error) {
	s.openCalls++
	return "0xaaaabbbbccccdddd0000000000000000000000000000000000000000000000", nil
}

func (s *fakeEvmSdk) SignClaim(ctx context.Context, channelID string, transferredAmount, lockedAmount decimal.Decimal, locksRoot string, nonce uint64) (string, error) {
	s.signCalls++
	return "0x" + repeat("1", 130), nil
}

func repeat(s string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}

type fakeAccounts struct {
	mu      sync.Mutex
	records []string
}

func (a *fakeAccounts) RecordSettlement(peerID string, blockchain claim.Blockchain, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, peerID+":"+string(blockchain))
	return nil
}

func newTestExecutor(t *testing.T, evmSdk *fakeEvmSdk, peerHandle *fakePeerHandle, accounts *fakeAccounts, cfg PeerConfig) *Executor {
	exec, _ := newTestExecutorWithTelemetry(t, evmSdk, peerHandle, accounts, cfg)
	return exec
}

func newTestExecutorWithTelemetry(t *testing.T, evmSdk *fakeEvmSdk, peerHandle *fakePeerHandle, accounts *fakeAccounts, cfg PeerConfig) (*Executor, *telemetry.Recorder) {
	store := persist.NewMemory()
	rec := telemetry.NewRecorder()
	sender := claimsender.New("node-1", store, rec)

	monitor := NewChannelMonitor(8)

	configs := func(peerID string) (PeerConfig, bool) {
		if peerID == cfg.PeerID {
			return cfg, true
		}
		return PeerConfig{}, false
	}

	return New("node-1", monitor, ChainSDKs{Evm: evmSdk}, sender, accounts, configs, rec), rec
}

func TestHandleSettlementRequiredOpensChannelAndSettles(t *testing.T) {
	evmSdk := &fakeEvmSdk{}
	peerHandle := &fakePeerHandle{}
	accounts := &fakeAccounts{}

	cfg := PeerConfig{
		PeerID:               "peer-a",
		SettlementPreference: PreferAny,
		SettlementTokens:     map[string]struct{}{"0xTokenAddr": {}},
		EvmAddress:           "0xPeerEvmAddress00000000000000000000000",
		Peer:                 peerHandle,
	}

	exec := newTestExecutor(t, evmSdk, peerHandle, accounts, cfg)

	err := exec.handleSettlementRequired(context.Background(), SettlementRequired{
		PeerID:    "peer-a",
		Balance:   decimal.NewFromInt(500),
		TokenID:   "0xTokenAddr",
		Timestamp: time.Now(),
	})

	require.NoError(t, err)
	require.Equal(t, 1, evmSdk.openCalls)
	require.Equal(t, 1, evmSdk.signCalls)
	require.Equal(t, 1, peerHandle.sends)
	require.Len(t, accounts.records, 1)

	runtime := exec.runtimeFor("peer-a")
	ch := runtime.channelFor(claim.Evm)
	require.Equal(t, Active, ch.state)
	require.NotEmpty(t, ch.channelID)
}

func TestHandleSettlementRequiredReusesCachedChannel(t *testing.T) {
	evmSdk := &fakeEvmSdk{}
	peerHandle := &fakePeerHandle{}
	accounts := &fakeAccounts{}

	cfg := PeerConfig{
		PeerID:               "peer-a",
		SettlementPreference: PreferAny,
		SettlementTokens:     map[string]struct{}{"0xTokenAddr": {}},
		EvmAddress:           "0xPeerEvmAddress00000000000000000000000",
		Peer:                 peerHandle,
	}
	exec := newTestExecutor(t, evmSdk, peerHandle, accounts, cfg)

	ev := SettlementRequired{PeerID: "peer-a", Balance: decimal.NewFromInt(500), TokenID: "0xTokenAddr", Timestamp: time.Now()}
	require.NoError(t, exec.handleSettlementRequired(context.Background(), ev))
	require.NoError(t, exec.handleSettlementRequired(context.Background(), ev))

	require.Equal(t, 1, evmSdk.openCalls)
	require.Equal(t, 2, evmSdk.signCalls)
}

func TestHandleSettlementRequiredUnknownPeer(t *testing.T) {
	evmSdk := &fakeEvmSdk{}
	exec := newTestExecutor(t, evmSdk, &fakePeerHandle{}, &fakeAccounts{}, PeerConfig{PeerID: "peer-a"})

	err := exec.handleSettlementRequired(context.Background(), SettlementRequired{PeerID: "nobody", TokenID: "XRP"})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestHandleSettlementRequiredNoCompatibleMethod(t *testing.T) {
	peerHandle := &fakePeerHandle{}
	cfg := PeerConfig{
		PeerID:           "peer-a",
		SettlementTokens: map[string]struct{}{"XRP": {}},
		Peer:             peerHandle,
		// No XrpChannels/XrpSigner configured on the executor and no XrpAddress set.
	}
	exec := newTestExecutor(t, &fakeEvmSdk{}, peerHandle, &fakeAccounts{}, cfg)

	err := exec.handleSettlementRequired(context.Background(), SettlementRequired{PeerID: "peer-a", TokenID: "XRP", Balance: decimal.NewFromInt(10)})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, 0, peerHandle.sends)
}

func TestHandleSettlementRequiredRejectsUnacceptedToken(t *testing.T) {
	peerHandle := &fakePeerHandle{}
	cfg := PeerConfig{
		PeerID:           "peer-a",
		SettlementTokens: map[string]struct{}{"0xOther": {}},
		EvmAddress:       "0xPeerEvmAddress00000000000000000000000",
		Peer:             peerHandle,
	}
	exec := newTestExecutor(t, &fakeEvmSdk{}, peerHandle, &fakeAccounts{}, cfg)

	err := exec.handleSettlementRequired(context.Background(), SettlementRequired{PeerID: "peer-a", TokenID: "0xTokenAddr", Balance: decimal.NewFromInt(10)})

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestStaticRoutingTableLongestPrefix(t *testing.T) {
	rt := NewStaticRoutingTable(map[string]string{
		"g.connector":      "default-peer",
		"g.connector.bob":  "bob-peer",
	})

	peerID, ok := rt.Lookup("g.connector.bob.invoice123")
	require.True(t, ok)
	require.Equal(t, "bob-peer", peerID)

	peerID, ok = rt.Lookup("g.connector.alice")
	require.True(t, ok)
	require.Equal(t, "default-peer", peerID)

	_, ok = rt.Lookup("h.unrelated")
	require.False(t, ok)
}

func TestHandleSettlementRequiredEmitsStartedAndFailedTelemetry(t *testing.T) {
	peerHandle := &fakePeerHandle{}
	cfg := PeerConfig{
		PeerID:           "peer-a",
		SettlementTokens: map[string]struct{}{"0xOther": {}},
		EvmAddress:       "0xPeerEvmAddress00000000000000000000000",
		Peer:             peerHandle,
	}
	exec, rec := newTestExecutorWithTelemetry(t, &fakeEvmSdk{}, peerHandle, &fakeAccounts{}, cfg)

	err := exec.handleSettlementRequired(context.Background(), SettlementRequired{PeerID: "peer-a", TokenID: "0xTokenAddr", Balance: decimal.NewFromInt(10)})
	require.Error(t, err)

	var started, failed int
	for _, e := range rec.Events() {
		switch e.Type {
		case telemetry.SettlementStarted:
			started++
		case telemetry.SettlementFailed:
			failed++
			require.False(t, e.Success)
			require.NotEmpty(t, e.Error)
		}
	}
	require.Equal(t, 1, started)
	require.Equal(t, 1, failed)
}

func TestHandleSettlementRequiredSuccessEmitsStartedOnly(t *testing.T) {
	evmSdk := &fakeEvmSdk{}
	peerHandle := &fakePeerHandle{}
	cfg := PeerConfig{
		PeerID:               "peer-a",
		SettlementPreference: PreferAny,
		SettlementTokens:     map[string]struct{}{"0xTokenAddr": {}},
		EvmAddress:           "0xPeerEvmAddress00000000000000000000000",
		Peer:                 peerHandle,
	}
	exec, rec := newTestExecutorWithTelemetry(t, evmSdk, peerHandle, &fakeAccounts{}, cfg)

	err := exec.handleSettlementRequired(context.Background(), SettlementRequired{
		PeerID:  "peer-a",
		Balance: decimal.NewFromInt(500),
		TokenID: "0xTokenAddr",
	})
	require.NoError(t, err)

	var started, failed int
	for _, e := range rec.Events() {
		switch e.Type {
		case telemetry.SettlementStarted:
			started++
		case telemetry.SettlementFailed:
			failed++
		}
	}
	require.Equal(t, 1, started)
	require.Equal(t, 0, failed)
}

var _ chainsdk.EvmSettlementSdk = (*fakeEvmSdk)(nil)
