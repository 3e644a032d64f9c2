package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/events"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// JobStatusReport is the externally visible progress of a job.
type JobStatusReport struct {
	JobID            uuid.UUID        `json:"job_id"`
	Status           domain.JobStatus `json:"status"`
	CurrentUnitIndex int              `json:"current_unit_index"`
	TotalUnits       int              `json:"total_units"`
	TotalGenerated   int              `json:"total_generated"`
	TotalSaved       int              `json:"total_saved"`
	TotalFailed      int              `json:"total_failed"`
	LastError        string           `json:"last_error,omitempty"`
	IsPaused         bool             `json:"is_paused"`
	ShouldStop       bool             `json:"should_stop"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewJobStatusReport builds the report of job.
func NewJobStatusReport(job *domain.Job) JobStatusReport {
	return JobStatusReport{
		JobID:            job.ID,
		Status:           job.Status,
		CurrentUnitIndex: job.CurrentUnitIndex,
		TotalUnits:       job.TotalUnits(),
		TotalGenerated:   job.TotalGenerated,
		TotalSaved:       job.TotalSaved,
		TotalFailed:      job.TotalFailed,
		LastError:        job.LastError,
		IsPaused:         job.IsPaused,
		ShouldStop:       job.ShouldStop,
		UpdatedAt:        job.UpdatedAt,
	}
}

// JobService is the control plane of bulk generation jobs.
type JobService interface {
	// Start creates a job over units and schedules it.
	Start(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error)

	// Pause asks the running orchestrator to pause at its next control check.
	Pause(ctx context.Context, jobID uuid.UUID) error

	// Resume clears the pause flag and reschedules the job.
	Resume(ctx context.Context, jobID uuid.UUID) error

	// Cancel asks the job to stop; the orchestrator marks it cancelled.
	Cancel(ctx context.Context, jobID uuid.UUID) error

	// Status returns the job's progress.
	Status(ctx context.Context, jobID uuid.UUID) (JobStatusReport, error)

	// Recover reschedules a stale non-terminal job. With force the
	// staleness check is skipped.
	Recover(ctx context.Context, jobID uuid.UUID, force bool) error
}

// JobServiceConfig tunes the control plane.
type JobServiceConfig struct {
	// StaleAfter is how long a job must go without updates before Recover
	// accepts it without force.
	StaleAfter time.Duration
}

type jobServiceImpl struct {
	jobs    store.JobStore
	emitter events.EventEmitter
	cfg     JobServiceConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewJobService creates a JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(
	jobs store.JobStore,
	emitter events.EventEmitter,
	cfg JobServiceConfig,
	logger *slog.Logger,
) (JobService, error) {
	if jobs == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "job store cannot be nil"}
	}
	if emitter == nil {
		return nil, &JobServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobs:    jobs,
		emitter: emitter,
		cfg:     cfg,
		logger:  logger.With("component", "job_service"),
		now:     time.Now,
	}, nil
}

// Start creates a pending job and emits JobStarted. When scheduling fails
// the job is still returned: it stays pending and the runner's stale sweep
// picks it up later.
func (s *jobServiceImpl) Start(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error) {
	job, err := s.jobs.Create(ctx, units, itemsPerUnit)
	if err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		s.logger.Error("failed to create job", "error", err, "unit_count", len(units))
		return nil, NewJobServiceError("start_job", "failed to create job", err)
	}

	s.logger.Info("job created",
		"job_id", job.ID,
		"unit_count", job.TotalUnits(),
		"items_per_unit", job.ItemsPerUnit)

	if err := s.emit(ctx, events.JobStarted, job.ID, nil); err != nil {
		s.logger.Warn("job created but not scheduled; the stale sweep will pick it up",
			"job_id", job.ID,
			"error", err)
	}

	return job, nil
}

// Pause sets is_paused. Pausing a job that is already paused is rejected.
func (s *jobServiceImpl) Pause(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.load(ctx, "pause_job", jobID)
	if err != nil {
		return err
	}

	if job.Status.IsTerminal() || job.IsPaused || job.ShouldStop {
		return s.reject("pause", job)
	}

	if err := s.jobs.Update(ctx, jobID, store.JobUpdate{IsPaused: store.Ptr(true)}); err != nil {
		return NewJobServiceError("pause_job", "failed to set pause flag", err)
	}

	s.logger.Info("job pause requested", "job_id", jobID, "status", job.Status)
	if err := s.emit(ctx, events.JobPaused, jobID, nil); err != nil {
		s.logger.Warn("failed to emit pause event", "job_id", jobID, "error", err)
	}
	return nil
}

// Resume clears is_paused and reschedules the job. Only paused jobs can be
// resumed.
func (s *jobServiceImpl) Resume(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.load(ctx, "resume_job", jobID)
	if err != nil {
		return err
	}

	if job.Status.IsTerminal() || !job.IsPaused || job.ShouldStop {
		return s.reject("resume", job)
	}

	if err := s.jobs.Update(ctx, jobID, store.JobUpdate{IsPaused: store.Ptr(false)}); err != nil {
		return NewJobServiceError("resume_job", "failed to clear pause flag", err)
	}

	s.logger.Info("job resume requested", "job_id", jobID, "status", job.Status)
	if err := s.emit(ctx, events.JobResumed, jobID, nil); err != nil {
		return NewJobServiceError("resume_job", "failed to schedule job", err)
	}
	return nil
}

// Cancel sets should_stop and schedules the job so that an idle job is
// finalized too. A running orchestrator picks the flag up at its next check.
func (s *jobServiceImpl) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.load(ctx, "cancel_job", jobID)
	if err != nil {
		return err
	}

	if job.Status.IsTerminal() || job.ShouldStop {
		return s.reject("cancel", job)
	}

	if err := s.jobs.Update(ctx, jobID, store.JobUpdate{ShouldStop: store.Ptr(true)}); err != nil {
		return NewJobServiceError("cancel_job", "failed to set stop flag", err)
	}

	s.logger.Info("job cancel requested", "job_id", jobID, "status", job.Status)
	if err := s.emit(ctx, events.JobCancelled, jobID, nil); err != nil {
		s.logger.Warn("failed to emit cancel event; the stale sweep will finalize the job",
			"job_id", jobID,
			"error", err)
	}
	return nil
}

// Status returns the job's progress.
func (s *jobServiceImpl) Status(ctx context.Context, jobID uuid.UUID) (JobStatusReport, error) {
	job, err := s.load(ctx, "job_status", jobID)
	if err != nil {
		return JobStatusReport{}, err
	}
	return NewJobStatusReport(job), nil
}

// Recover reschedules a non-terminal job whose last update is older than
// StaleAfter, or any non-terminal job when force is set.
func (s *jobServiceImpl) Recover(ctx context.Context, jobID uuid.UUID, force bool) error {
	job, err := s.load(ctx, "recover_job", jobID)
	if err != nil {
		return err
	}

	if job.Status.IsTerminal() {
		return s.reject("recover", job)
	}

	idle := s.now().Sub(job.UpdatedAt)
	if !force && idle < s.cfg.StaleAfter {
		return fmt.Errorf("%w: last update %s ago, threshold %s",
			ErrNotStale, idle.Round(time.Second), s.cfg.StaleAfter)
	}

	s.logger.Info("job recovery requested",
		"job_id", jobID,
		"status", job.Status,
		"current_unit_index", job.CurrentUnitIndex,
		"idle", idle.Round(time.Second),
		"force", force)

	payload := struct {
		Force bool `json:"force"`
	}{Force: force}
	if err := s.emit(ctx, events.JobRecovered, jobID, payload); err != nil {
		return NewJobServiceError("recover_job", "failed to schedule job", err)
	}
	return nil
}

func (s *jobServiceImpl) load(ctx context.Context, op string, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		if !errors.Is(err, store.ErrJobNotFound) {
			s.logger.Error("failed to load job", "error", err, "job_id", jobID, "operation", op)
		}
		return nil, NewJobServiceError(op, "failed to load job", err)
	}
	return job, nil
}

func (s *jobServiceImpl) reject(action string, job *domain.Job) error {
	s.logger.Debug("control request rejected",
		"job_id", job.ID,
		"action", action,
		"status", job.Status,
		"is_paused", job.IsPaused,
		"should_stop", job.ShouldStop)
	return fmt.Errorf("%w: cannot %s job in status %s (paused=%t, stopping=%t)",
		ErrInvalidTransition, action, job.Status, job.IsPaused, job.ShouldStop)
}

func (s *jobServiceImpl) emit(ctx context.Context, eventType string, jobID uuid.UUID, payload any) error {
	event, err := events.NewJobEvent(eventType, jobID, payload)
	if err != nil {
		return fmt.Errorf("failed to create %s event: %w", eventType, err)
	}
	return s.emitter.EmitEvent(ctx, event)
}
