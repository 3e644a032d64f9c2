package generation

import (
	"context"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
)

// Options tunes a single provider call. Zero values mean provider defaults.
type Options struct {
	Temperature     *float32
	MaxOutputTokens int
}

// Request is one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Tier         domain.Tier
	Options      Options
}

// Response is the raw text answer of a provider.
type Response struct {
	Text  string
	Model string
	Tier  domain.Tier
}

// Provider is a text generation backend. Implementations report failures as
// *ProviderError where they can, so the Classifier can reason about them.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f ProviderFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
