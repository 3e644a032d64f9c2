package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job lifecycle event types
const (
	JobStarted   = "job.started"
	JobResumed   = "job.resumed"
	JobRecovered = "job.recovered"
	JobPaused    = "job.paused"
	JobCancelled = "job.cancelled"
)

// JobEvent is a lifecycle event of one job.
type JobEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Job* event types
	Type string `json:"type"`

	// JobID identifies the job the event is about
	JobID uuid.UUID `json:"job_id"`

	// Payload contains optional event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *JobEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewJobEvent creates a JobEvent. A nil payload is omitted.
func NewJobEvent(eventType string, jobID uuid.UUID, payload any) (*JobEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &JobEvent{
		ID:        uuid.New(),
		Type:      eventType,
		JobID:     jobID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *JobEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *JobEvent) error
}
