package settlement

import "context"

// ChannelMonitor is a reference SettlementMonitor backed by a plain Go
// channel: the host application's accounts subsystem publishes events into
// it as peer balances cross threshold.
type ChannelMonitor struct {
	ch chan SettlementRequired
}

// NewChannelMonitor creates a ChannelMonitor with the given event buffer.
func NewChannelMonitor(buffer int) *ChannelMonitor {
	return &ChannelMonitor{ch: make(chan SettlementRequired, buffer)}
}

// Events implements SettlementMonitor.
func (m *ChannelMonitor) Events() <-chan SettlementRequired {
	return m.ch
}

// Publish enqueues ev, blocking until there is buffer space or ctx is done.
func (m *ChannelMonitor) Publish(ctx context.Context, ev SettlementRequired) error {
	select {
	case m.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops further events from being delivered; Events() will drain any
// buffered events and then close.
func (m *ChannelMonitor) Close() {
	close(m.ch)
}
