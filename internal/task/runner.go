package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/robfig/cron/v3"
)

// ErrAlreadyScheduled is returned by Submit when the job is queued or running.
var ErrAlreadyScheduled = errors.New("job already scheduled")

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many jobs run concurrently
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StaleAfter is how long a non-terminal job may go without an update
	// before the sweep re-queues it
	StaleAfter time.Duration

	// SweepSchedule is the cron expression of the stale job sweep
	SweepSchedule string
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:   2,
		QueueSize:     100,
		StaleAfter:    10 * time.Minute,
		SweepSchedule: "@every 1m",
	}
}

// Runner manages background job processing. A job is queued or running on
// at most one worker at any time.
type Runner struct {
	jobs    store.JobStore
	factory *JobTaskFactory
	queue   *TaskQueue
	pool    *WorkerPool
	cron    *cron.Cron
	config  RunnerConfig
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	scheduled map[uuid.UUID]struct{}
	// rerun holds jobs submitted again while queued or running; they are
	// queued once more when the current run releases them.
	rerun map[uuid.UUID]struct{}
}

// NewRunner creates a new Runner
func NewRunner(jobs store.JobStore, executor JobExecutor, config RunnerConfig, logger *slog.Logger) (*Runner, error) {
	def := DefaultRunnerConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = def.StaleAfter
	}
	if config.SweepSchedule == "" {
		config.SweepSchedule = def.SweepSchedule
	}
	if _, err := cron.ParseStandard(config.SweepSchedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", config.SweepSchedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	r := &Runner{
		jobs:      jobs,
		factory:   NewJobTaskFactory(executor),
		queue:     queue,
		pool:      NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger),
		cron:      cron.New(),
		config:    config,
		logger:    logger,
		now:       time.Now,
		scheduled: make(map[uuid.UUID]struct{}),
		rerun:     make(map[uuid.UUID]struct{}),
	}

	r.pool.SetDoneHandler(func(task Task) { r.finish(task.ID()) })
	r.pool.SetErrorHandler(func(task Task, err error) {
		r.logger.Error("job run failed; the job stays resumable",
			"job_id", task.ID(),
			"error", err)
	})

	return r, nil
}

// Submit queues jobID for execution. A job that is already queued or
// running is not queued twice; it is run once more after the current run
// finishes and ErrAlreadyScheduled is returned.
func (r *Runner) Submit(ctx context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	if _, ok := r.scheduled[jobID]; ok {
		r.rerun[jobID] = struct{}{}
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyScheduled, jobID)
	}
	r.scheduled[jobID] = struct{}{}
	r.mu.Unlock()

	if err := r.queue.Enqueue(r.factory.CreateTask(jobID)); err != nil {
		r.release(jobID)
		return fmt.Errorf("failed to queue job %s: %w", jobID, err)
	}
	return nil
}

// IsScheduled reports whether jobID is queued or running.
func (r *Runner) IsScheduled(jobID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.scheduled[jobID]
	return ok
}

func (r *Runner) release(jobID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scheduled, jobID)
	delete(r.rerun, jobID)
}

// finish releases jobID after a run, or queues it again when it was
// resubmitted while the run was in flight.
func (r *Runner) finish(jobID uuid.UUID) {
	r.mu.Lock()
	_, again := r.rerun[jobID]
	delete(r.rerun, jobID)
	r.mu.Unlock()

	if !again {
		r.release(jobID)
		return
	}

	if err := r.queue.Enqueue(r.factory.CreateTask(jobID)); err != nil {
		r.logger.Error("failed to requeue resubmitted job",
			"job_id", jobID,
			"error", err)
		r.release(jobID)
		return
	}
	r.logger.Debug("resubmitted job queued again", "job_id", jobID)
}

// Start recovers unfinished jobs, starts the workers and schedules the
// stale job sweep.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	r.pool.Start()

	if _, err := r.cron.AddFunc(r.config.SweepSchedule, func() {
		if _, err := r.Sweep(context.Background()); err != nil {
			r.logger.Error("stale job sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	r.cron.Start()

	r.logger.Info("job runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize,
		"sweep_schedule", r.config.SweepSchedule)
	return nil
}

// Stop halts the sweep, asks running jobs to stop and waits for the workers.
// Interrupted jobs keep their checkpoint and are recovered on the next start.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.pool.Stop()
	r.queue.Close()
	r.logger.Info("job runner stopped")
}

// Recover queues every non-terminal, unpaused job.
func (r *Runner) Recover(ctx context.Context) error {
	active, err := r.jobs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs", "count", len(active))
	r.submitAll(ctx, active, "recovery")
	return nil
}

// Sweep re-queues non-terminal jobs that have not been updated within
// StaleAfter and are neither paused nor already scheduled. It returns the
// number of jobs queued.
func (r *Runner) Sweep(ctx context.Context) (int, error) {
	stale, err := r.jobs.ListStale(ctx, r.now().Add(-r.config.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	candidates := stale[:0]
	for _, job := range stale {
		if job.IsPaused || r.IsScheduled(job.ID) {
			continue
		}
		candidates = append(candidates, job)
	}
	if len(candidates) > 0 {
		r.logger.Info("found stale jobs", "count", len(candidates))
	}
	return r.submitAll(ctx, candidates, "sweep"), nil
}

func (r *Runner) submitAll(ctx context.Context, jobs []*domain.Job, source string) int {
	queued := 0
	for _, job := range jobs {
		err := r.Submit(ctx, job.ID)
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrAlreadyScheduled):
			r.logger.Debug("job already scheduled", "job_id", job.ID, "source", source)
		default:
			r.logger.Error("failed to requeue job",
				"job_id", job.ID,
				"source", source,
				"error", err)
		}
	}
	return queued
}
