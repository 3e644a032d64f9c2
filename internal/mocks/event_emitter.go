package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-bulkgen/internal/events"
)

// MockEventEmitter implements events.EventEmitter for testing.
type MockEventEmitter struct {
	// EmitFn overrides EmitEvent when set.
	EmitFn func(ctx context.Context, event *events.JobEvent) error

	mu     sync.Mutex
	events []*events.JobEvent
}

// EmitEvent implements events.EventEmitter.
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.JobEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	fn := m.EmitFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, event)
	}
	return nil
}

// Events returns the emitted events in order.
func (m *MockEventEmitter) Events() []*events.JobEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.JobEvent(nil), m.events...)
}

// Types returns the type of every emitted event, in order.
func (m *MockEventEmitter) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.Type
	}
	return types
}
