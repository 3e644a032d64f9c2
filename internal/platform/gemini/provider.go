package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"google.golang.org/genai"
)

// ProviderName labels errors and logs.
const ProviderName = "gemini"

// ContentGenerator is the slice of genai.Models the provider uses.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Config configures one Gemini-backed Provider.
type Config struct {
	Model   string
	Timeout time.Duration
}

// Provider implements generation.Provider for one Gemini model.
type Provider struct {
	models ContentGenerator
	cfg    Config
	logger *slog.Logger
}

var _ generation.Provider = (*Provider)(nil)

// NewClient creates a genai client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}
	return client, nil
}

// NewProvider wires a Provider. models is usually client.Models.
func NewProvider(models ContentGenerator, cfg Config, logger *slog.Logger) (*Provider, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: gemini client cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		models: models,
		cfg:    cfg,
		logger: logger.With("component", "gemini_provider", "model", cfg.Model),
	}, nil
}

// Generate sends one request. The response is asked for as JSON; parsing is
// left to the quality gate.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      req.Options.Temperature,
	}
	if req.Options.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.Options.MaxOutputTokens)
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}

	log.Debug("calling gemini",
		"tier", req.Tier.String(),
		"prompt_length", len(req.UserPrompt))

	resp, err := p.models.GenerateContent(ctx, p.cfg.Model, contents, config)
	if err != nil {
		return nil, mapError(err)
	}
	if err := blocked(resp); err != nil {
		log.Warn("gemini blocked the response", "tier", req.Tier.String(), "reason", err.Message)
		return nil, err
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		log.Warn("gemini returned no text", "tier", req.Tier.String(), "finish_reason", finishReason(resp))
	}

	return &generation.Response{Text: text, Model: p.cfg.Model, Tier: req.Tier}, nil
}

// mapError turns genai API errors into provider errors. Transport errors are
// returned unchanged so net.Error and context errors stay visible.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &generation.ProviderError{
			Provider: ProviderName,
			Status:   apiErr.Code,
			Message:  apiErr.Message,
			Err:      err,
		}
	}
	return err
}

// blockingFinishReasons end a candidate without usable content.
var blockingFinishReasons = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonRecitation:        true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonSPII:              true,
}

func blocked(resp *genai.GenerateContentResponse) *generation.ProviderError {
	if resp == nil {
		return nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return &generation.ProviderError{
			Provider: ProviderName,
			Blocked:  true,
			Message:  "prompt blocked: " + string(fb.BlockReason),
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		if reason := resp.Candidates[0].FinishReason; blockingFinishReasons[reason] {
			return &generation.ProviderError{
				Provider: ProviderName,
				Blocked:  true,
				Message:  "finish reason " + string(reason),
			}
		}
	}
	return nil
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return string(resp.Candidates[0].FinishReason)
}
