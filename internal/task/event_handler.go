package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/events"
)

// SchedulingEvents are the event types that put a job on a worker. A
// cancelled job is scheduled too so that an idle job gets finalized.
var SchedulingEvents = []string{events.JobStarted, events.JobResumed, events.JobRecovered, events.JobCancelled}

// JobSubmitter queues job runs.
type JobSubmitter interface {
	Submit(ctx context.Context, jobID uuid.UUID) error
}

// JobEventHandler implements events.EventHandler by submitting the job of
// every scheduling event to the runner.
type JobEventHandler struct {
	runner JobSubmitter
	logger *slog.Logger
}

// NewJobEventHandler creates a handler submitting to runner.
func NewJobEventHandler(runner JobSubmitter, logger *slog.Logger) *JobEventHandler {
	return &JobEventHandler{
		runner: runner,
		logger: logger.With("component", "job_event_handler"),
	}
}

// HandleEvent submits the event's job. A job that is already queued or
// running is not an error: the running orchestrator will observe the new
// state on its next control check.
func (h *JobEventHandler) HandleEvent(ctx context.Context, event *events.JobEvent) error {
	log := h.logger.With("event_id", event.ID, "event_type", event.Type, "job_id", event.JobID)

	switch event.Type {
	case events.JobStarted, events.JobResumed, events.JobRecovered, events.JobCancelled:
	default:
		log.Debug("ignoring event with unsupported type")
		return nil
	}

	if event.JobID == uuid.Nil {
		log.Error("event without job ID")
		return fmt.Errorf("event %s: missing job ID", event.ID)
	}

	if err := h.runner.Submit(ctx, event.JobID); err != nil {
		if errors.Is(err, ErrAlreadyScheduled) {
			log.Debug("job already scheduled")
			return nil
		}
		log.Error("failed to submit job", "error", err)
		return fmt.Errorf("failed to submit job: %w", err)
	}

	log.Info("job submitted to runner")
	return nil
}

var _ events.EventHandler = (*JobEventHandler)(nil)
