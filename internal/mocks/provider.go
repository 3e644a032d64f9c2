package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
)

// ProviderReply is one scripted provider answer.
type ProviderReply struct {
	Text string
	Err  error
}

// MockProvider implements generation.Provider for testing.
//
// When GenerateFn is set it handles every call. Otherwise replies are taken
// from Script[req.Tier] in order; an exhausted script returns an error.
type MockProvider struct {
	GenerateFn func(ctx context.Context, req generation.Request) (*generation.Response, error)
	Script     map[domain.Tier][]ProviderReply

	mu       sync.Mutex
	calls    []generation.Request
	position map[domain.Tier]int
}

// Generate implements generation.Provider.
func (m *MockProvider) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if m.GenerateFn != nil {
		fn := m.GenerateFn
		m.mu.Unlock()
		return fn(ctx, req)
	}

	if m.position == nil {
		m.position = make(map[domain.Tier]int)
	}
	replies := m.Script[req.Tier]
	idx := m.position[req.Tier]
	m.position[req.Tier] = idx + 1
	m.mu.Unlock()

	if idx >= len(replies) {
		return nil, fmt.Errorf("mock provider: no scripted reply %d for %s", idx, req.Tier)
	}
	reply := replies[idx]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &generation.Response{Text: reply.Text, Model: "mock-" + req.Tier.String(), Tier: req.Tier}, nil
}

// Calls returns a copy of the requests received so far.
func (m *MockProvider) Calls() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.calls...)
}

// CallCount returns the number of requests received.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// TiersCalled returns the tier of every request, in order.
func (m *MockProvider) TiersCalled() []domain.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	tiers := make([]domain.Tier, len(m.calls))
	for i, c := range m.calls {
		tiers[i] = c.Tier
	}
	return tiers
}

// ItemsJSON renders n distinct items for unit as a provider response body.
func ItemsJSON(unit string, n int) string {
	return ItemsJSONFrom(unit, 1, n)
}

// ItemsJSONFrom renders n items numbered from start.
func ItemsJSONFrom(unit string, start, n int) string {
	body := `{"items":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":%d,"text":"%s fact number %d is long enough to pass the quality gate."}`,
			i+1, unit, start+i)
	}
	return body + "]}"
}
