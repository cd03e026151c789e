package mocks

import (
	"context"
	"sync"

	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// GenerateCardsFn overrides the default behavior when set.
	GenerateCardsFn func(ctx context.Context, text, focus string) ([]domain.CardDraft, error)

	// Drafts and Err are returned when GenerateCardsFn is nil.
	Drafts []domain.CardDraft
	Err    error

	mu    sync.Mutex
	calls []GenerateCall
}

// GenerateCall records the arguments of one GenerateCards call.
type GenerateCall struct {
	Text  string
	Focus string
}

var _ generation.Generator = (*MockGenerator)(nil)

// GenerateCards implements generation.Generator.
func (m *MockGenerator) GenerateCards(ctx context.Context, text, focus string) ([]domain.CardDraft, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Text: text, Focus: focus})
	m.mu.Unlock()

	if m.GenerateCardsFn != nil {
		return m.GenerateCardsFn(ctx, text, focus)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.CardDraft(nil), m.Drafts...), nil
}

// Calls returns the recorded calls.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}
