// Command connectord is a reference wiring of the ilpconnector/core
// packages into a runnable process: it terminates BTP-over-WebSocket peer
// connections, authenticates them with a short-lived session token, and
// drives the settlement executor off a channel-based monitor.
//
// It is a demonstration entrypoint, not a deployment target: the chain SDKs
// (EvmSettlementSdk, XrpChannelManager, XrpClaimSigner, AptosSettlementSdk)
// are left unconfigured here since concrete blockchain RPC clients are a
// host application's responsibility per the core's non-goals.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/ilpconnector/core/btpauth"
	"github.com/ilpconnector/core/claimsender"
	"github.com/ilpconnector/core/config"
	"github.com/ilpconnector/core/peer/wspeer"
	"github.com/ilpconnector/core/persist"
	"github.com/ilpconnector/core/settlement"
	"github.com/ilpconnector/core/telemetry"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	store := persist.NewMemory()
	promRegistry := prometheus.NewRegistry()
	sink, err := buildTelemetrySink(cfg.TelemetryExporter, promRegistry)
	if err != nil {
		slog.Error("failed to build telemetry sink", "exporter", cfg.TelemetryExporter, "err", err)
		os.Exit(1)
	}
	tokens := btpauth.NewTokenManager(cfg.BTPAuthSecret, cfg.BTPAuthLease)

	peerConfigs, err := cfg.LoadPeers()
	if err != nil {
		slog.Error("failed to load peers config", "err", err)
		os.Exit(1)
	}
	peerByID := make(map[string]config.PeerSettlementConfig, len(peerConfigs))
	for _, p := range peerConfigs {
		peerByID[p.PeerID] = p
	}

	registry := newPeerRegistry()
	sender := claimsender.New(cfg.NodeID, store, sink)
	monitor := settlement.NewChannelMonitor(256)

	configs := func(peerID string) (settlement.PeerConfig, bool) {
		raw, ok := peerByID[peerID]
		if !ok {
			return settlement.PeerConfig{}, false
		}
		handle, connected := registry.get(peerID)
		if !connected {
			return settlement.PeerConfig{}, false
		}
		return settlement.PeerConfig{
			PeerID:               raw.PeerID,
			Address:              raw.Address,
			SettlementPreference: settlement.Preference(raw.SettlementPreference),
			SettlementTokens:     toTokenSet(raw.SettlementTokens),
			EvmAddress:           raw.EvmAddress,
			XrpAddress:           raw.XrpAddress,
			AptosAddress:         raw.AptosAddress,
			AptosPubkey:          raw.AptosPubkey,
			Peer:                 handle,
		}, true
	}

	executor := settlement.New(cfg.NodeID, monitor, settlement.ChainSDKs{}, sender, nil, configs, sink)
	executor.OwnEvmAddress = cfg.EvmSettlementAddress

	ctx, cancel := context.WithCancel(context.Background())
	executor.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", handleIssueToken(tokens))
	mux.HandleFunc("/btp", handleBTPUpgrade(tokens, registry))
	if cfg.TelemetryExporter == "prometheus" {
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	server := &http.Server{Addr: cfg.ListenAddress, Handler: mux}
	go func() {
		slog.Info("connectord listening", "addr", cfg.ListenAddress, "nodeId", cfg.NodeID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("connectord shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	executor.Stop()
	cancel()
}

func buildTelemetrySink(exporter string, reg *prometheus.Registry) (telemetry.Telemetry, error) {
	switch exporter {
	case "otel":
		meter := otel.Meter("ilpconnector")
		return telemetry.NewOTel(meter)
	case "prometheus":
		return telemetry.NewPrometheus(reg)
	default:
		return telemetry.NewSlog(slog.Default()), nil
	}
}

func toTokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

type issueTokenRequest struct {
	PeerID    string `json:"peerId"`
	SessionID string `json:"sessionId"`
}

func handleIssueToken(tokens *btpauth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var req issueTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if req.PeerID == "" || req.SessionID == "" {
			http.Error(w, "peerId and sessionId are required", http.StatusBadRequest)
			return
		}
		token, err := tokens.IssueToken(req.PeerID, req.SessionID)
		if err != nil {
			http.Error(w, "failed to issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

func handleBTPUpgrade(tokens *btpauth.TokenManager, registry *peerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		claims, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid peer session token: %v", err), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "err", err)
			return
		}

		peerID := claims.Subject
		handle := wspeer.New(conn)
		registry.register(peerID, handle)
		slog.Info("peer connected", "peerId", peerID, "sessionId", claims.SessionID)

		go func() {
			defer registry.unregister(peerID)
			defer handle.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					slog.Info("peer disconnected", "peerId", peerID, "err", err)
					return
				}
			}
		}()
	}
}
