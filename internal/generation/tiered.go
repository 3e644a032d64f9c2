package generation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"golang.org/x/time/rate"
)

// TierBackend is the provider serving one tier plus the rate limiter of the
// credential it uses. Tiers sharing a credential must share the limiter.
type TierBackend struct {
	Name     string
	Provider Provider
	Limiter  *rate.Limiter
}

// TieredProvider routes requests to the backend configured for their tier.
type TieredProvider struct {
	backends map[domain.Tier]TierBackend
}

// NewTieredProvider requires a backend for every tier.
func NewTieredProvider(backends map[domain.Tier]TierBackend) (*TieredProvider, error) {
	for _, tier := range domain.AllTiers {
		b, ok := backends[tier]
		if !ok || b.Provider == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoProviderForTier, tier)
		}
	}
	copied := make(map[domain.Tier]TierBackend, len(backends))
	for t, b := range backends {
		copied[t] = b
	}
	return &TieredProvider{backends: copied}, nil
}

// NewRateLimiter returns a token bucket allowing perMinute calls per minute
// with a burst of one. A non-positive rate disables limiting.
func NewRateLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Generate waits for the tier's limiter and forwards the request.
func (p *TieredProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	b, ok := p.backends[req.Tier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProviderForTier, req.Tier)
	}

	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &ProviderError{
				Provider: b.Name,
				Status:   http.StatusTooManyRequests,
				Message:  "local rate limit: " + err.Error(),
				Err:      err,
			}
		}
	}

	resp, err := b.Provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = &Response{}
	}
	resp.Tier = req.Tier
	return resp, nil
}
