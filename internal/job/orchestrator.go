package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/metrics"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/phrazzld/scry-bulkgen/internal/redact"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// BatchGenerator produces the candidates of one batch.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, unit string, count int, control generation.ControlGate) (*generation.BatchResult, error)
}

// Persister writes the candidates of one batch.
type Persister interface {
	Persist(
		ctx context.Context,
		job *domain.Job,
		unit string,
		tier domain.Tier,
		items []domain.CandidateItem,
		control Gate,
	) (PersistResult, error)
}

// OrchestratorConfig tunes batching and pause handling.
type OrchestratorConfig struct {
	MaxBatchSize int
	Control      ControlConfig
}

// Orchestrator drives a job from its checkpoint to a terminal or paused
// state. One orchestrator run handles one job sequentially.
type Orchestrator struct {
	jobs      store.JobStore
	generator BatchGenerator
	persister Persister
	cfg       OrchestratorConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(
	jobs store.JobStore,
	generator BatchGenerator,
	persister Persister,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if jobs == nil || generator == nil || persister == nil {
		return nil, fmt.Errorf("%w: job store, generator and persister are required", ErrInvalidConfig)
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = domain.DefaultMaxBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		jobs:      jobs,
		generator: generator,
		persister: persister,
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run processes the job identified by jobID, resuming at its current unit
// index. It returns nil when the job completes, is cancelled or stays
// paused. Only job store failures and context cancellation are returned;
// provider and content store trouble is recorded on the job instead.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID) error {
	log := o.logger.With("job_id", jobID)
	ctx = logger.WithLogger(ctx, log)

	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w: load job: %w", ErrJobStore, err)
	}

	if job.Status.IsTerminal() {
		log.Info("job already finished, nothing to do", "status", job.Status)
		return nil
	}
	if job.ShouldStop {
		return o.finish(ctx, job, domain.JobStatusCancelled)
	}

	if !job.IsPaused {
		update := store.JobUpdate{Status: store.Ptr(domain.JobStatusProcessing)}
		if job.StartedAt == nil {
			update.StartedAt = store.Ptr(o.now())
		}
		if err := o.jobs.Update(ctx, job.ID, update); err != nil {
			return fmt.Errorf("%w: mark processing: %w", ErrJobStore, err)
		}
	}

	log.Info("job run started",
		"resume_unit_index", job.CurrentUnitIndex,
		"total_units", job.TotalUnits(),
		"items_per_unit", job.ItemsPerUnit)

	poller := NewControlPoller(o.jobs, job.ID, o.cfg.Control, log)

	for ui := job.CurrentUnitIndex; ui < len(job.Units); ui++ {
		unitErr, err := o.runUnit(ctx, job, ui, poller)
		if err != nil {
			return o.handleInterruption(ctx, job, err)
		}

		update := store.JobUpdate{CurrentUnitIndex: store.Ptr(ui + 1)}
		if unitErr != "" {
			update.LastError = store.Ptr(unitErr)
		}
		if err := o.jobs.Update(ctx, job.ID, update); err != nil {
			return fmt.Errorf("%w: checkpoint unit %d: %w", ErrJobStore, ui, err)
		}
		log.Info("unit checkpointed", "unit", job.Units[ui], "current_unit_index", ui+1)
	}

	return o.finish(ctx, job, domain.JobStatusCompleted)
}

// runUnit generates and persists every batch of one unit. It returns a
// non-empty unit error when no batch of the unit produced candidates.
func (o *Orchestrator) runUnit(ctx context.Context, job *domain.Job, ui int, poller *ControlPoller) (string, error) {
	unit := job.Units[ui]
	log := logger.FromContext(ctx).With("unit", unit, "unit_index", ui)

	batches := domain.BatchSizes(job.ItemsPerUnit, o.cfg.MaxBatchSize)
	abandoned := 0

	for bi, size := range batches {
		started := time.Now()

		if err := poller.Proceed(ctx); err != nil {
			return "", err
		}

		res, err := o.generator.GenerateBatch(ctx, unit, size, poller)
		if err != nil {
			if !generation.IsAbandoned(err) {
				return "", err
			}
			abandoned++
			msg := redact.Secrets(fmt.Sprintf("unit %q batch %d: %v", unit, bi+1, err))
			log.Warn("batch abandoned", "batch", bi+1, "error", err)
			if err := o.jobs.Update(ctx, job.ID, store.JobUpdate{LastError: store.Ptr(msg)}); err != nil {
				return "", fmt.Errorf("%w: record abandoned batch: %w", ErrJobStore, err)
			}
			continue
		}

		if err := o.jobs.IncrementCounters(ctx, job.ID, store.CounterDelta{Generated: len(res.Candidates)}); err != nil {
			return "", fmt.Errorf("%w: count generated: %w", ErrJobStore, err)
		}

		pr, err := o.persister.Persist(ctx, job, unit, res.TierUsed, res.Candidates, poller)
		if err != nil {
			return "", err
		}

		if pr.HighFailureRate {
			msg := fmt.Sprintf("unit %q batch %d: stop-loss after %d failed of %d decided items",
				unit, bi+1, pr.Failed, pr.Saved+pr.Failed)
			log.Warn("high failure rate, moving on", "batch", bi+1, "saved", pr.Saved, "failed", pr.Failed)
			if err := o.jobs.Update(ctx, job.ID, store.JobUpdate{LastError: store.Ptr(msg)}); err != nil {
				return "", fmt.Errorf("%w: record stop-loss: %w", ErrJobStore, err)
			}
		}

		metrics.BatchDuration.Observe(time.Since(started).Seconds())
		log.Info("batch done",
			"batch", bi+1,
			"batches", len(batches),
			"tier", res.TierUsed.String(),
			"generated", len(res.Candidates),
			"saved", pr.Saved,
			"failed", pr.Failed,
			"skipped", pr.Skipped)
	}

	if len(batches) > 0 && abandoned == len(batches) {
		return fmt.Sprintf("unit %q: all %d batches abandoned", unit, len(batches)), nil
	}
	return "", nil
}

// handleInterruption turns control signals into job state. Stop requests
// cancel the job; a job still paused after the bounded wait is left paused
// without advancing its checkpoint, so a later resume re-runs the unit.
func (o *Orchestrator) handleInterruption(ctx context.Context, job *domain.Job, err error) error {
	log := logger.FromContext(ctx)

	switch {
	case errors.Is(err, domain.ErrJobStopRequested):
		return o.finish(ctx, job, domain.JobStatusCancelled)

	case errors.Is(err, domain.ErrJobPaused):
		if err := o.jobs.Update(ctx, job.ID, store.JobUpdate{Status: store.Ptr(domain.JobStatusPaused)}); err != nil {
			return fmt.Errorf("%w: mark paused: %w", ErrJobStore, err)
		}

		// A resume or cancel landing after the wait gave up is not seen by
		// the runner while this run still holds the job.
		current, err := o.jobs.Get(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("%w: re-read control flags: %w", ErrJobStore, err)
		}
		switch {
		case current.ShouldStop:
			return o.finish(ctx, job, domain.JobStatusCancelled)
		case !current.IsPaused:
			log.Info("job resumed while releasing, continuing")
			return o.Run(ctx, job.ID)
		}

		metrics.JobsFinished.WithLabelValues(string(domain.JobStatusPaused)).Inc()
		log.Info("job left paused; worker released")
		return nil

	case errors.Is(err, ErrJobStore):
		log.Error("job store failure, aborting run", "error", err)
		return err

	default:
		log.Warn("job run interrupted", "error", err)
		return err
	}
}

// finish moves the job to a terminal status.
func (o *Orchestrator) finish(ctx context.Context, job *domain.Job, status domain.JobStatus) error {
	update := store.JobUpdate{
		Status:      store.Ptr(status),
		CompletedAt: store.Ptr(o.now()),
	}
	if err := o.jobs.Update(ctx, job.ID, update); err != nil {
		return fmt.Errorf("%w: mark %s: %w", ErrJobStore, status, err)
	}

	metrics.JobsFinished.WithLabelValues(string(status)).Inc()
	logger.FromContextOrDefault(ctx, o.logger).Info("job finished", "status", status)
	return nil
}
