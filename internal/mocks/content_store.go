package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
)

// MockContentStore implements store.ContentStore for testing.
type MockContentStore struct {
	// CreateFn overrides Create. attempt counts calls for the same item text,
	// starting at 1.
	CreateFn func(ctx context.Context, item *domain.AcceptedItem, attempt int) (uuid.UUID, error)

	mu       sync.Mutex
	saved    []*domain.AcceptedItem
	attempts map[string]int
	calls    int
}

// Create implements store.ContentStore.
func (m *MockContentStore) Create(ctx context.Context, item *domain.AcceptedItem) (uuid.UUID, error) {
	m.mu.Lock()
	if m.attempts == nil {
		m.attempts = make(map[string]int)
	}
	m.calls++
	m.attempts[item.Text]++
	attempt := m.attempts[item.Text]
	fn := m.CreateFn
	m.mu.Unlock()

	if fn != nil {
		id, err := fn(ctx, item, attempt)
		if err == nil {
			m.record(item)
		}
		return id, err
	}

	m.record(item)
	return item.ID, nil
}

func (m *MockContentStore) record(item *domain.AcceptedItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, item)
}

// Saved returns the items stored so far.
func (m *MockContentStore) Saved() []*domain.AcceptedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AcceptedItem(nil), m.saved...)
}

// Calls returns the total number of Create calls, retries included.
func (m *MockContentStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// DistinctItemsAttempted returns how many different item texts were tried.
func (m *MockContentStore) DistinctItemsAttempted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}
