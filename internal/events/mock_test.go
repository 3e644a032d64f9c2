package events

import (
	"context"
	"sync"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	HandlerError error

	mu           sync.Mutex
	HandledCount int
	LastEvent    *JobEvent
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, event *JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}
