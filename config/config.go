// Package config loads connector configuration from the environment, the
// same getEnv/getEnvInt-over-godotenv idiom the retrieved gateway codebase
// uses for its own settings.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PeerSettlementConfig is the JSON-serializable form of a peer's settlement
// configuration, loaded from PEERS_CONFIG_PATH. The wiring entrypoint
// resolves it into a settlement.PeerConfig (which additionally carries the
// live peer.Handle).
type PeerSettlementConfig struct {
	PeerID               string   `json:"peerId"`
	Address              string   `json:"address"`
	SettlementPreference string   `json:"settlementPreference"` // evm | xrp | aptos | any
	SettlementTokens     []string `json:"settlementTokens"`
	EvmAddress           string   `json:"evmAddress,omitempty"`
	XrpAddress           string   `json:"xrpAddress,omitempty"`
	AptosAddress         string   `json:"aptosAddress,omitempty"`
	AptosPubkey          string   `json:"aptosPubkey,omitempty"`
}

// Config holds all connector configuration.
type Config struct {
	// NodeID identifies this connector in telemetry events and as the
	// senderId on outgoing claims.
	NodeID string

	// ListenAddress is where this node accepts inbound BTP-over-WebSocket
	// peer connections (host application's responsibility to bind).
	ListenAddress string

	// PersistenceDSN addresses the sent-claims/settlements store. An empty
	// value (the default) selects the in-memory reference store.
	PersistenceDSN string

	// TelemetryExporter selects which telemetry.Telemetry sink the wiring
	// entrypoint constructs: "slog" (default), "otel", or "prometheus".
	TelemetryExporter string

	// BTPAuthSecret is the HMAC-SHA256 key btpauth.TokenManager signs peer
	// session tokens with.
	BTPAuthSecret []byte

	// BTPAuthLease is how long an issued peer session token remains valid.
	BTPAuthLease time.Duration

	// PeersConfigPath is a JSON file of []PeerSettlementConfig describing
	// every statically configured peer. Empty means no peers are
	// preconfigured (a host application may still register them at runtime).
	PeersConfigPath string

	// EvmSettlementAddress is this node's own EVM settlement address,
	// embedded as signerAddress on outgoing EVM claims.
	EvmSettlementAddress string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present (dev convenience).
func Load() (*Config, error) {
	_ = godotenv.Load() // no-op if .env absent (production uses real env vars)

	cfg := &Config{
		NodeID:               getEnv("NODE_ID", "connector-1"),
		ListenAddress:         getEnv("LISTEN_ADDRESS", ":7768"),
		PersistenceDSN:       getEnv("PERSISTENCE_DSN", ""),
		TelemetryExporter:    getEnv("TELEMETRY_EXPORTER", "slog"),
		BTPAuthLease:         time.Duration(getEnvInt("BTP_AUTH_LEASE_HOURS", 24)) * time.Hour,
		PeersConfigPath:      getEnv("PEERS_CONFIG_PATH", ""),
		EvmSettlementAddress: getEnv("EVM_SETTLEMENT_ADDRESS", ""),
	}

	switch cfg.TelemetryExporter {
	case "slog", "otel", "prometheus":
	default:
		return nil, fmt.Errorf("TELEMETRY_EXPORTER must be one of slog|otel|prometheus, got %q", cfg.TelemetryExporter)
	}

	secretHex := getEnv("BTP_AUTH_SECRET", "")
	if secretHex == "" {
		return nil, fmt.Errorf("BTP_AUTH_SECRET env var is required (32-byte hex)")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("BTP_AUTH_SECRET must be valid hex: %w", err)
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("BTP_AUTH_SECRET must be at least 32 bytes (64 hex chars)")
	}
	cfg.BTPAuthSecret = secret

	return cfg, nil
}

// LoadPeers reads the []PeerSettlementConfig named by cfg.PeersConfigPath.
// It returns an empty slice, not an error, when no path is configured.
func (c *Config) LoadPeers() ([]PeerSettlementConfig, error) {
	if c.PeersConfigPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.PeersConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading peers config %q: %w", c.PeersConfigPath, err)
	}
	var peers []PeerSettlementConfig
	if err := json.Unmarshal(data, &peers); err != nil {
		return nil, fmt.Errorf("parsing peers config %q: %w", c.PeersConfigPath, err)
	}
	for i, p := range peers {
		if strings.TrimSpace(p.PeerID) == "" {
			return nil, fmt.Errorf("peers config entry %d: peerId must not be empty", i)
		}
	}
	return peers, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
