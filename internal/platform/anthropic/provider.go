// Package anthropic adapts the Anthropic Messages API to the
// generation.Provider interface. It usually serves the top tier.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
)

// ProviderName labels errors and logs.
const ProviderName = "anthropic"

// defaultMaxTokens is used when the request sets no output limit; the
// Messages API requires one.
const defaultMaxTokens = 4096

const stopReasonRefusal = "refusal"

// MessageCreator is the slice of anthropic.MessageService the provider uses.
type MessageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Config configures one Anthropic-backed Provider.
type Config struct {
	Model   string
	Timeout time.Duration
}

// Provider implements generation.Provider for one Claude model.
type Provider struct {
	messages MessageCreator
	cfg      Config
	logger   *slog.Logger
}

var _ generation.Provider = (*Provider)(nil)

// NewClient creates an Anthropic API client. The SDK's own retries are
// disabled because escalation decides what happens after a failure.
func NewClient(apiKey string) (*anthropic.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key cannot be empty", generation.ErrInvalidConfig)
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &client, nil
}

// NewProvider wires a Provider. messages is usually &client.Messages.
func NewProvider(messages MessageCreator, cfg Config, logger *slog.Logger) (*Provider, error) {
	if messages == nil {
		return nil, fmt.Errorf("%w: anthropic client cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		messages: messages,
		cfg:      cfg,
		logger:   logger.With("component", "anthropic_provider", "model", cfg.Model),
	}, nil
}

// Generate sends one message and concatenates the text blocks of the answer.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	maxTokens := int64(defaultMaxTokens)
	if req.Options.MaxOutputTokens > 0 {
		maxTokens = int64(req.Options.MaxOutputTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.Options.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*req.Options.Temperature))
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	log.Debug("calling anthropic",
		"tier", req.Tier.String(),
		"prompt_length", len(req.UserPrompt))

	msg, err := p.messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	if string(msg.StopReason) == stopReasonRefusal {
		log.Warn("anthropic refused the request", "tier", req.Tier.String())
		return nil, &generation.ProviderError{
			Provider: ProviderName,
			Blocked:  true,
			Message:  "stop reason refusal",
		}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &generation.Response{Text: text.String(), Model: p.cfg.Model, Tier: req.Tier}, nil
}

// mapError turns API errors into provider errors carrying the HTTP status.
// Transport errors are returned unchanged.
func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &generation.ProviderError{
			Provider: ProviderName,
			Status:   apiErr.StatusCode,
			Message:  apiErr.Error(),
			Err:      err,
		}
	}
	return err
}
