package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/store"
)

// MockDeckStore implements store.DeckStore in memory for testing.
// Stored entities are cloned on the way in and out.
type MockDeckStore struct {
	// Function fields for customizable behavior
	GetCardsFn func(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error)
	SaveCardFn func(ctx context.Context, card *domain.Card) error
	AddCardsFn func(ctx context.Context, deckID uuid.UUID, drafts []domain.CardDraft, now time.Time) ([]*domain.Card, error)

	mu    sync.Mutex
	decks map[uuid.UUID]*domain.Deck
	cards map[uuid.UUID]*domain.Card

	// SaveCardCalls counts SaveCard invocations, including failed ones.
	SaveCardCalls int
}

var _ store.DeckStore = (*MockDeckStore)(nil)

// NewMockDeckStore creates an empty store.
func NewMockDeckStore() *MockDeckStore {
	return &MockDeckStore{
		decks: make(map[uuid.UUID]*domain.Deck),
		cards: make(map[uuid.UUID]*domain.Card),
	}
}

// CreateDeck implements store.DeckStore.
func (m *MockDeckStore) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if err := deck.Validate(); err != nil {
		return store.NewStoreError("deck", "create", "invalid deck", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.decks[deck.ID]; exists {
		return store.ErrDuplicate
	}
	d := *deck
	m.decks[deck.ID] = &d
	return nil
}

// GetDeck implements store.DeckStore.
func (m *MockDeckStore) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	out := *d
	return &out, nil
}

// ListDecks implements store.DeckStore.
func (m *MockDeckStore) ListDecks(ctx context.Context, userID uuid.UUID) ([]*domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var decks []*domain.Deck
	for _, d := range m.decks {
		if d.UserID == userID {
			out := *d
			decks = append(decks, &out)
		}
	}
	sort.Slice(decks, func(i, j int) bool {
		return decks[i].CreatedAt.Before(decks[j].CreatedAt)
	})
	return decks, nil
}

// GetCards implements store.DeckStore.
func (m *MockDeckStore) GetCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	if m.GetCardsFn != nil {
		return m.GetCardsFn(ctx, deckID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.decks[deckID]; !ok {
		return nil, store.ErrDeckNotFound
	}
	return m.deckCards(deckID), nil
}

// GetCard implements store.DeckStore.
func (m *MockDeckStore) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return c.Clone(), nil
}

// AddCards implements store.DeckStore.
func (m *MockDeckStore) AddCards(
	ctx context.Context,
	deckID uuid.UUID,
	drafts []domain.CardDraft,
	now time.Time,
) ([]*domain.Card, error) {
	if m.AddCardsFn != nil {
		return m.AddCardsFn(ctx, deckID, drafts, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.decks[deckID]; !ok {
		return nil, store.ErrDeckNotFound
	}

	next := len(m.deckCards(deckID))
	added := make([]*domain.Card, 0, len(drafts))
	for i, draft := range drafts {
		card, err := domain.NewCard(deckID, next+i, draft, now)
		if err != nil {
			return nil, store.NewStoreError("card", "add", "invalid card", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
		}
		added = append(added, card)
	}
	for _, c := range added {
		m.cards[c.ID] = c.Clone()
	}
	return added, nil
}

// SaveCard implements store.DeckStore, including the stale-write guard.
func (m *MockDeckStore) SaveCard(ctx context.Context, card *domain.Card) error {
	m.mu.Lock()
	m.SaveCardCalls++
	m.mu.Unlock()

	if m.SaveCardFn != nil {
		return m.SaveCardFn(ctx, card)
	}
	return m.DefaultSaveCard(ctx, card)
}

// DefaultSaveCard is the in-memory SaveCard behavior, available to
// SaveCardFn overrides that only fail some of the time.
func (m *MockDeckStore) DefaultSaveCard(ctx context.Context, card *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.decks[card.DeckID]; !ok {
		return store.ErrDeckNotFound
	}
	stored, ok := m.cards[card.ID]
	if !ok {
		return store.ErrCardNotFound
	}
	if prev := stored.Memory.LastReviewedAt; prev != nil {
		next := card.Memory.LastReviewedAt
		if next == nil || prev.After(*next) {
			return store.ErrStaleWrite
		}
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

// DeleteDeck implements store.DeckStore.
func (m *MockDeckStore) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.decks[id]; !ok {
		return store.ErrDeckNotFound
	}
	delete(m.decks, id)
	for cid, c := range m.cards {
		if c.DeckID == id {
			delete(m.cards, cid)
		}
	}
	return nil
}

// PutCards stores ready-made cards as they are, bypassing AddCards.
// Tests use it to seed cards with arbitrary memory state.
func (m *MockDeckStore) PutCards(cards ...*domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cards {
		m.cards[c.ID] = c.Clone()
	}
}

// deckCards returns clones of a deck's cards in position order. Called with m.mu held.
func (m *MockDeckStore) deckCards(deckID uuid.UUID) []*domain.Card {
	var cards []*domain.Card
	for _, c := range m.cards {
		if c.DeckID == deckID {
			cards = append(cards, c.Clone())
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].Position < cards[j].Position
	})
	return cards
}
