package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

type subscription struct {
	handler EventHandler
	types   []string
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventEmitter dispatches events synchronously to the handlers
// subscribed to their type.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes handler to the given event types, or to every
// event when no type is given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{handler: handler, types: types})
	e.logger.Debug("registered event handler", "handler_count", len(e.subs), "types", types)
}

// EmitEvent delivers event to every subscribed handler. All handlers run
// even when one fails; the first error is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *JobEvent) error {
	e.mu.RLock()
	var targets []EventHandler
	for _, s := range e.subs {
		if s.wants(event.Type) {
			targets = append(targets, s.handler)
		}
	}
	e.mu.RUnlock()

	log := e.logger.With("event_id", event.ID, "event_type", event.Type, "job_id", event.JobID)
	if len(targets) == 0 {
		log.Debug("no handler subscribed to event")
		return nil
	}

	var firstErr error
	for i, handler := range targets {
		if err := handler.HandleEvent(ctx, event); err != nil {
			log.Error("handler failed to process event", "error", err, "handler_index", i)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
