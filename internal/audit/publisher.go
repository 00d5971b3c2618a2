// Package audit captures structured events for every pipeline run so an
// operator can answer who ran what and when after the fact.
package audit

import (
	"context"
	"sync"
	"time"
)

// Publisher is an append-only event sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Memory buffers events in process. It is the sink used when Kafka is not
// configured, and lets tests assert on emitted events directly.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
