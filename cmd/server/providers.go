package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-bulkgen/internal/config"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/platform/anthropic"
	"github.com/phrazzld/scry-bulkgen/internal/platform/gemini"
	"golang.org/x/time/rate"
)

// tierSpec names the backend and model serving one tier.
type tierSpec struct {
	Provider string
	Model    string
}

// tierPlan maps every tier to its backend. Tiers 1 and 2 always run on
// Gemini; tier 3 runs on the configured provider.
func tierPlan(cfg config.LLMConfig) map[domain.Tier]tierSpec {
	return map[domain.Tier]tierSpec{
		domain.Tier1: {Provider: gemini.ProviderName, Model: cfg.Tier1Model},
		domain.Tier2: {Provider: gemini.ProviderName, Model: cfg.Tier2Model},
		domain.Tier3: {Provider: cfg.Tier3Provider, Model: cfg.Tier3Model},
	}
}

// buildTieredProvider creates one client per credential and one rate
// limiter per credential, shared by every tier using it.
func buildTieredProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*generation.TieredProvider, error) {
	plan := tierPlan(cfg)
	limiters := make(map[string]*rate.Limiter)
	backends := make(map[domain.Tier]generation.TierBackend, len(plan))

	var (
		geminiModels    gemini.ContentGenerator
		anthropicClient anthropic.MessageCreator
	)

	for _, tier := range domain.AllTiers {
		spec := plan[tier]

		var (
			provider generation.Provider
			err      error
		)
		switch spec.Provider {
		case gemini.ProviderName:
			if geminiModels == nil {
				client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
				if err != nil {
					return nil, err
				}
				geminiModels = client.Models
			}
			provider, err = gemini.NewProvider(geminiModels, gemini.Config{
				Model:   spec.Model,
				Timeout: cfg.Timeout(),
			}, logger)

		case anthropic.ProviderName:
			if anthropicClient == nil {
				client, err := anthropic.NewClient(cfg.AnthropicAPIKey)
				if err != nil {
					return nil, err
				}
				anthropicClient = &client.Messages
			}
			provider, err = anthropic.NewProvider(anthropicClient, anthropic.Config{
				Model:   spec.Model,
				Timeout: cfg.Timeout(),
			}, logger)

		default:
			return nil, fmt.Errorf("%w: unknown provider %q for %s",
				generation.ErrInvalidConfig, spec.Provider, tier)
		}
		if err != nil {
			return nil, err
		}

		limiter, ok := limiters[spec.Provider]
		if !ok {
			limiter = generation.NewRateLimiter(cfg.RequestsPerMinute)
			limiters[spec.Provider] = limiter
		}

		backends[tier] = generation.TierBackend{
			Name:     spec.Provider,
			Provider: provider,
			Limiter:  limiter,
		}
		logger.Info("tier configured",
			"tier", tier.String(),
			"provider", spec.Provider,
			"model", spec.Model)
	}

	return generation.NewTieredProvider(backends)
}
