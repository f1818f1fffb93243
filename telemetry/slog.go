package telemetry

import (
	"log/slog"

	"github.com/google/uuid"
)

// Slog emits telemetry events as structured log/slog records, matching the
// logging idiom used throughout this module.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a Slog sink writing through logger. A nil logger uses
// slog.Default().
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

// Emit logs event at Info level on success and Warn level on failure, each
// tagged with a fresh event id for correlation with downstream log shippers.
func (s *Slog) Emit(event Event) {
	attrs := []any{
		"event_id", uuid.NewString(),
		"type", string(event.Type),
		"node_id", event.NodeID,
		"peer_id", event.PeerID,
		"blockchain", event.Blockchain,
		"message_id", event.MessageID,
		"amount", event.Amount,
		"success", event.Success,
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, "duration_ms", event.DurationMs)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}

	if event.Success {
		s.logger.Info("telemetry event", attrs...)
		return
	}
	s.logger.Warn("telemetry event", attrs...)
}
