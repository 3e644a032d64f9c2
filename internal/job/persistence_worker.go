package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/metrics"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// PersistenceConfig tunes retries and the stop-loss rule.
type PersistenceConfig struct {
	MaxAttempts        int
	BaseBackoff        time.Duration
	StopLossRatio      float64
	StopLossMinSamples int
}

// DefaultPersistenceConfig retries five times from 200ms and aborts a batch
// once more than half of at least four decided items failed.
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		MaxAttempts:        5,
		BaseBackoff:        200 * time.Millisecond,
		StopLossRatio:      0.5,
		StopLossMinSamples: 4,
	}
}

// PersistResult summarizes one batch write.
type PersistResult struct {
	Saved           int
	Failed          int
	Skipped         int
	Aborted         bool
	HighFailureRate bool
}

// Gate is the control surface the worker needs.
type Gate interface {
	generation.ControlGate
	Check(ctx context.Context) (ControlState, error)
}

type outcome int

const (
	outcomeSaved outcome = iota
	outcomeSkipped
	outcomeFailed
)

// PersistenceWorker saves accepted items one at a time.
type PersistenceWorker struct {
	content store.ContentStore
	jobs    store.JobStore
	cfg     PersistenceConfig
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPersistenceWorker creates a worker. Zero config values take defaults.
func NewPersistenceWorker(
	content store.ContentStore,
	jobs store.JobStore,
	cfg PersistenceConfig,
	logger *slog.Logger,
) *PersistenceWorker {
	def := DefaultPersistenceConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseBackoff < 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.StopLossRatio <= 0 {
		cfg.StopLossRatio = def.StopLossRatio
	}
	if cfg.StopLossMinSamples <= 0 {
		cfg.StopLossMinSamples = def.StopLossMinSamples
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistenceWorker{
		content: content,
		jobs:    jobs,
		cfg:     cfg,
		logger:  logger.With("component", "persistence_worker"),
		sleep:   sleepContext,
	}
}

// Persist writes items sequentially. Counters are updated in the job store
// after every item so progress is visible before the batch ends.
//
// A control error (stop requested, still paused) ends the batch early and is
// returned alongside the partial result. Job store failures are wrapped in
// ErrJobStore.
func (w *PersistenceWorker) Persist(
	ctx context.Context,
	job *domain.Job,
	unit string,
	tier domain.Tier,
	items []domain.CandidateItem,
	control Gate,
) (PersistResult, error) {
	log := logger.FromContextOrDefault(ctx, w.logger).With("unit", unit, "tier", tier.String())
	var res PersistResult

	for i, candidate := range items {
		if err := control.Proceed(ctx); err != nil {
			return res, err
		}

		result, err := w.persistOne(ctx, job, unit, tier, candidate)
		if err != nil {
			return res, err
		}

		delta := store.CounterDelta{}
		switch result {
		case outcomeSaved:
			res.Saved++
			delta.Saved = 1
			metrics.ItemsPersisted.WithLabelValues("saved").Inc()
		case outcomeSkipped:
			res.Skipped++
			metrics.ItemsPersisted.WithLabelValues("skipped").Inc()
		case outcomeFailed:
			res.Failed++
			delta.Failed = 1
			metrics.ItemsPersisted.WithLabelValues("failed").Inc()
		}

		if !delta.IsZero() {
			if err := w.jobs.IncrementCounters(ctx, job.ID, delta); err != nil {
				return res, fmt.Errorf("%w: increment counters: %w", ErrJobStore, err)
			}
		}

		if w.stopLossTripped(res) {
			res.Aborted = true
			res.HighFailureRate = true
			metrics.StopLossTrips.Inc()
			log.Warn("stop-loss tripped, abandoning remaining items",
				"saved", res.Saved,
				"failed", res.Failed,
				"skipped", res.Skipped,
				"remaining", len(items)-i-1)
			return res, nil
		}

		state, err := control.Check(ctx)
		if err != nil {
			return res, err
		}
		if state.ShouldStop {
			return res, domain.ErrJobStopRequested
		}
	}

	return res, nil
}

func (w *PersistenceWorker) stopLossTripped(res PersistResult) bool {
	decided := res.Saved + res.Failed
	if decided < w.cfg.StopLossMinSamples || decided == 0 {
		return false
	}
	return float64(res.Failed)/float64(decided) > w.cfg.StopLossRatio
}

// persistOne derives and writes one item, retrying transient failures with
// exponential backoff. Only context cancellation is returned as an error.
func (w *PersistenceWorker) persistOne(
	ctx context.Context,
	job *domain.Job,
	unit string,
	tier domain.Tier,
	candidate domain.CandidateItem,
) (outcome, error) {
	log := logger.FromContextOrDefault(ctx, w.logger)

	item, err := domain.DeriveItem(job.ID, unit, tier, candidate.Text)
	if err != nil {
		log.Warn("item failed validation", "sequence_id", candidate.SequenceID, "error", err)
		return outcomeFailed, nil
	}

	backoff := w.cfg.BaseBackoff
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		_, err := w.content.Create(ctx, item)
		switch {
		case err == nil:
			return outcomeSaved, nil
		case errors.Is(err, store.ErrRejected):
			log.Debug("item rejected by content store", "slug", item.Slug, "error", err)
			return outcomeSkipped, nil
		case errors.Is(err, store.ErrInvalidEntity):
			log.Warn("item refused as invalid", "slug", item.Slug, "error", err)
			return outcomeFailed, nil
		case ctx.Err() != nil:
			return outcomeFailed, ctx.Err()
		}

		if attempt == w.cfg.MaxAttempts {
			log.Error("item write failed permanently",
				"slug", item.Slug,
				"attempts", attempt,
				"error", err)
			break
		}

		log.Debug("item write failed, retrying",
			"slug", item.Slug,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)
		if err := w.sleep(ctx, backoff); err != nil {
			return outcomeFailed, err
		}
		backoff *= 2
	}

	return outcomeFailed, nil
}
