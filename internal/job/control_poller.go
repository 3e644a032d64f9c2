package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// ControlState is the operator-controlled part of a job.
type ControlState struct {
	ShouldStop bool
	IsPaused   bool
}

// ControlConfig bounds the wait while a job is paused.
type ControlConfig struct {
	PollInterval   time.Duration
	MaxPauseChecks int
}

// DefaultControlConfig re-checks every second, ten times.
func DefaultControlConfig() ControlConfig {
	return ControlConfig{PollInterval: time.Second, MaxPauseChecks: 10}
}

// ControlPoller reads a job's control flags from the store. It never caches:
// every call is a fresh read.
type ControlPoller struct {
	jobs   store.JobStore
	jobID  uuid.UUID
	cfg    ControlConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewControlPoller creates a poller for one job.
func NewControlPoller(jobs store.JobStore, jobID uuid.UUID, cfg ControlConfig, logger *slog.Logger) *ControlPoller {
	def := DefaultControlConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPauseChecks <= 0 {
		cfg.MaxPauseChecks = def.MaxPauseChecks
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlPoller{
		jobs:   jobs,
		jobID:  jobID,
		cfg:    cfg,
		logger: logger.With("component", "control_poller", "job_id", jobID),
		sleep:  sleepContext,
	}
}

// Check returns the current control flags.
func (p *ControlPoller) Check(ctx context.Context) (ControlState, error) {
	job, err := p.jobs.Get(ctx, p.jobID)
	if err != nil {
		return ControlState{}, fmt.Errorf("%w: read control flags: %w", ErrJobStore, err)
	}
	return ControlState{ShouldStop: job.ShouldStop, IsPaused: job.IsPaused}, nil
}

// WaitWhilePaused re-checks the flags every PollInterval, at most
// MaxPauseChecks times, until the job is no longer paused. It returns the
// last observed state; a state that is still paused means the wait timed out.
func (p *ControlPoller) WaitWhilePaused(ctx context.Context) (ControlState, error) {
	state, err := p.Check(ctx)
	if err != nil {
		return state, err
	}

	for i := 0; state.IsPaused && !state.ShouldStop && i < p.cfg.MaxPauseChecks; i++ {
		if err := p.sleep(ctx, p.cfg.PollInterval); err != nil {
			return state, err
		}
		if state, err = p.Check(ctx); err != nil {
			return state, err
		}
	}
	return state, nil
}

// Proceed is the single gate used before provider calls and item writes.
// It returns domain.ErrJobStopRequested when a stop was requested and
// domain.ErrJobPaused when the job stays paused past the bounded wait.
func (p *ControlPoller) Proceed(ctx context.Context) error {
	state, err := p.Check(ctx)
	if err != nil {
		return err
	}
	if state.ShouldStop {
		return domain.ErrJobStopRequested
	}
	if !state.IsPaused {
		return nil
	}

	p.logger.Info("job paused, waiting for resume",
		"poll_interval", p.cfg.PollInterval,
		"max_checks", p.cfg.MaxPauseChecks)

	state, err = p.WaitWhilePaused(ctx)
	if err != nil {
		return err
	}
	switch {
	case state.ShouldStop:
		return domain.ErrJobStopRequested
	case state.IsPaused:
		return domain.ErrJobPaused
	default:
		p.logger.Info("job resumed")
		return nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
