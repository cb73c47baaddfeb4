package observability

import "sync"

// Metrics provides basic in-memory counters keyed by domain event type.
type Metrics struct {
	mu     sync.Mutex
	events map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		events: make(map[string]int64),
	}
}

// RecordEvent increments the counter for an event type.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[eventType]++
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.events))
	for k, v := range m.events {
		out[k] = v
	}
	return out
}
