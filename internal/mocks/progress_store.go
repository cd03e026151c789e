package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/store"
)

// MockProgressStore implements store.ProgressStore in memory for testing.
type MockProgressStore struct {
	// Err, when set, is returned by every method.
	Err error

	mu   sync.Mutex
	days map[progressKey]domain.DailyProgress
}

type progressKey struct {
	userID uuid.UUID
	day    string
}

var _ store.ProgressStore = (*MockProgressStore)(nil)

// NewMockProgressStore creates an empty store.
func NewMockProgressStore() *MockProgressStore {
	return &MockProgressStore{days: make(map[progressKey]domain.DailyProgress)}
}

// GetDailyProgress implements store.ProgressStore.
func (m *MockProgressStore) GetDailyProgress(
	ctx context.Context,
	userID uuid.UUID,
	day string,
) (domain.DailyProgress, error) {
	if m.Err != nil {
		return domain.DailyProgress{}, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.days[progressKey{userID, day}]; ok {
		return p, nil
	}
	return domain.DailyProgress{UserID: userID, Day: day}, nil
}

// IncrementDailyProgress implements store.ProgressStore.
func (m *MockProgressStore) IncrementDailyProgress(
	ctx context.Context,
	userID uuid.UUID,
	day string,
	learned, reviewed int,
) (domain.DailyProgress, error) {
	if m.Err != nil {
		return domain.DailyProgress{}, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := progressKey{userID, day}
	p, ok := m.days[key]
	if !ok {
		p = domain.DailyProgress{UserID: userID, Day: day}
	}
	p.Learned += learned
	p.Reviewed += reviewed
	m.days[key] = p
	return p, nil
}
