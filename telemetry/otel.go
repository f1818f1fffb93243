package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTel emits telemetry events as OpenTelemetry metric instruments: a count
// of events by type/outcome, a count of failures carrying the error reason
// as an attribute for downstream aggregation, and a latency histogram that
// records every event's DurationMs (0 for events that carry none).
type OTel struct {
	events   metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewOTel creates an OTel sink registering its instruments on meter.
func NewOTel(meter metric.Meter) (*OTel, error) {
	events, err := meter.Int64Counter(
		"ilpconnector.telemetry.events",
		metric.WithDescription("count of telemetry events emitted by the claim sender and settlement executor"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"ilpconnector.telemetry.failures",
		metric.WithDescription("count of telemetry events reporting a failed outcome"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"ilpconnector.telemetry.latency_ms",
		metric.WithDescription("duration, in milliseconds, covered by a claim send or settlement-executor transition"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &OTel{events: events, failures: failures, latency: latency}, nil
}

// Emit records event against the registered instruments.
func (o *OTel) Emit(event Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("type", string(event.Type)),
		attribute.String("blockchain", event.Blockchain),
		attribute.Bool("success", event.Success),
	)
	o.events.Add(ctx, 1, attrs)
	o.latency.Record(ctx, event.DurationMs, attrs)
	if !event.Success {
		o.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", string(event.Type)),
			attribute.String("blockchain", event.Blockchain),
			attribute.String("error", event.Error),
		))
		slog.Debug("otel telemetry failure recorded", "event", event)
	}
}
