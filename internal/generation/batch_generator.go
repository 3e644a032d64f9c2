package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/metrics"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
)

// ControlGate is consulted before every provider call. A non-nil error
// (stop requested, still paused, job store failure) ends the batch and is
// returned unchanged.
type ControlGate interface {
	Proceed(ctx context.Context) error
}

// BatchConfig tunes the escalation loop.
type BatchConfig struct {
	// EscalateOnContentFilter allows one escalation per batch after a
	// content-filter refusal instead of abandoning the batch.
	EscalateOnContentFilter bool
	// MaxRetryDelay caps how long a suggested retry delay is honored.
	MaxRetryDelay   time.Duration
	Temperature     *float32
	MaxOutputTokens int
}

// BatchResult is the output of one batch.
type BatchResult struct {
	Candidates []domain.CandidateItem
	TierUsed   domain.Tier
	Attempts   int
}

// BatchGenerator produces one batch of candidates for one unit, walking the
// tier ladder from the unit's start tier upwards. Each tier is tried at most
// once per batch.
type BatchGenerator struct {
	provider   Provider
	classifier *Classifier
	gate       *QualityGate
	prompts    *PromptBuilder
	units      domain.UnitClassifier
	cfg        BatchConfig
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewBatchGenerator wires a BatchGenerator.
func NewBatchGenerator(
	provider Provider,
	classifier *Classifier,
	gate *QualityGate,
	prompts *PromptBuilder,
	units domain.UnitClassifier,
	cfg BatchConfig,
	logger *slog.Logger,
) (*BatchGenerator, error) {
	if provider == nil || classifier == nil || gate == nil || prompts == nil {
		return nil, fmt.Errorf("%w: provider, classifier, gate and prompts are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchGenerator{
		provider:   provider,
		classifier: classifier,
		gate:       gate,
		prompts:    prompts,
		units:      units,
		cfg:        cfg,
		logger:     logger.With("component", "batch_generator"),
		sleep:      sleepContext,
	}, nil
}

// GenerateBatch asks the provider for count items of unit. It returns an
// *AbandonedError when no tier produced a usable candidate. Errors from
// control and context cancellation are returned as-is.
func (g *BatchGenerator) GenerateBatch(
	ctx context.Context,
	unit string,
	count int,
	control ControlGate,
) (*BatchResult, error) {
	log := logger.FromContextOrDefault(ctx, g.logger).With("unit", unit, "count", count)

	class := g.units.Classify(unit)
	tiers := domain.TiersFrom(class.StartTier())

	var (
		best               *BatchResult
		lastErr            error
		lastReason         string
		lastCategory       string
		attempts           int
		filterEscalationOK = g.cfg.EscalateOnContentFilter
	)

	for i, tier := range tiers {
		hasNext := i < len(tiers)-1

		if err := control.Proceed(ctx); err != nil {
			return nil, err
		}

		req, err := g.prompts.Build(unit, class, tier, count)
		if err != nil {
			return nil, &AbandonedError{Reason: "prompt rendering failed", Err: err}
		}
		req.Options = Options{Temperature: g.cfg.Temperature, MaxOutputTokens: g.cfg.MaxOutputTokens}

		attempts++
		start := time.Now()
		resp, err := g.provider.Generate(ctx, req)
		metrics.ProviderLatency.WithLabelValues(tier.String()).Observe(time.Since(start).Seconds())

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			cls := g.classifier.Classify(err)
			metrics.ProviderCalls.WithLabelValues(tier.String(), string(cls.Category)).Inc()
			lastErr = err
			lastReason = string(cls.Category)
			lastCategory = string(cls.Category)

			switch {
			case cls.Retryable && hasNext:
				delay := cls.SuggestedDelay
				if g.cfg.MaxRetryDelay > 0 && delay > g.cfg.MaxRetryDelay {
					delay = g.cfg.MaxRetryDelay
				}
				log.Warn("provider call failed, escalating",
					"tier", tier.String(),
					"category", cls.Category,
					"delay", delay,
					"error", err)
				if err := g.sleep(ctx, delay); err != nil {
					return nil, err
				}
				metrics.Escalations.WithLabelValues(tier.String(), string(cls.Category)).Inc()
				continue

			case cls.Category == CategoryContentFilter && filterEscalationOK && hasNext:
				filterEscalationOK = false
				log.Warn("content filtered, escalating once", "tier", tier.String())
				metrics.Escalations.WithLabelValues(tier.String(), string(cls.Category)).Inc()
				continue

			default:
				log.Warn("provider call failed, abandoning batch",
					"tier", tier.String(),
					"category", cls.Category,
					"retryable", cls.Retryable,
					"error", err)
				return g.abandon(best, lastCategory, lastReason, lastErr)
			}
		}

		if resp == nil {
			resp = &Response{Tier: tier}
		}
		verdict := g.gate.Evaluate(resp.Text, count)
		if !verdict.Escalate {
			metrics.ProviderCalls.WithLabelValues(tier.String(), "ok").Inc()
			log.Debug("batch generated",
				"tier", tier.String(),
				"model", resp.Model,
				"valid", len(verdict.ValidItems),
				"rejected", verdict.Rejected,
				"parse_mode", verdict.ParseMode)
			return &BatchResult{Candidates: verdict.ValidItems, TierUsed: tier, Attempts: attempts}, nil
		}

		metrics.ProviderCalls.WithLabelValues(tier.String(), "insufficient").Inc()
		lastReason = verdict.Reason
		lastCategory = "insufficient"
		lastErr = nil
		if best == nil || len(verdict.ValidItems) > len(best.Candidates) {
			best = &BatchResult{Candidates: verdict.ValidItems, TierUsed: tier}
		}
		best.Attempts = attempts
		if hasNext {
			log.Info("insufficient output, escalating",
				"tier", tier.String(),
				"reason", verdict.Reason,
				"valid", len(verdict.ValidItems),
				"parse_mode", verdict.ParseMode)
			metrics.Escalations.WithLabelValues(tier.String(), "insufficient").Inc()
		}
	}

	return g.abandon(best, lastCategory, lastReason, lastErr)
}

// abandon returns the best partial result seen, or an AbandonedError when
// there is none.
func (g *BatchGenerator) abandon(best *BatchResult, category, reason string, err error) (*BatchResult, error) {
	if best != nil && len(best.Candidates) > 0 {
		return best, nil
	}
	if reason == "" {
		reason = "no tier produced valid items"
	}
	if category == "" {
		category = "insufficient"
	}
	metrics.BatchesAbandoned.WithLabelValues(category).Inc()
	return nil, &AbandonedError{Reason: reason, Err: err}
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

// AbandonReason returns the reason of an AbandonedError, or "" for other errors.
func AbandonReason(err error) string {
	var ae *AbandonedError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
