package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Prometheus emits telemetry events as Prometheus counters and a latency
// histogram, in the idiom the broader connector/consensus ecosystem uses for
// its own metrics registries.
type Prometheus struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewPrometheus creates a Prometheus sink and registers its collectors with
// reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ilpconnector",
		Subsystem: "telemetry",
		Name:      "events_total",
		Help:      "Count of telemetry events emitted by the claim sender and settlement executor.",
	}, []string{"type", "blockchain", "success"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ilpconnector",
		Subsystem: "telemetry",
		Name:      "latency_ms",
		Help:      "Duration, in milliseconds, covered by a claim send or settlement-executor transition.",
		Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
	}, []string{"type", "blockchain"})

	if err := reg.Register(events); err != nil {
		return nil, err
	}
	if err := reg.Register(latency); err != nil {
		return nil, err
	}
	return &Prometheus{events: events, latency: latency}, nil
}

// Emit increments the events counter for event's type/blockchain/outcome and
// observes its duration against the latency histogram.
func (p *Prometheus) Emit(event Event) {
	p.events.WithLabelValues(
		string(event.Type),
		event.Blockchain,
		boolLabel(event.Success),
	).Inc()
	p.latency.WithLabelValues(string(event.Type), event.Blockchain).Observe(event.DurationMs)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
