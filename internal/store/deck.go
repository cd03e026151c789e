package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
)

// DeckStore defines the interface for deck and card persistence.
// A deck owns its cards; card memory state is only ever written through SaveCard.
type DeckStore interface {
	// CreateDeck saves a new, empty deck.
	// Returns ErrInvalidEntity (wrapping the domain error) if the deck is invalid,
	// or ErrDuplicate if a deck with the same ID exists.
	CreateDeck(ctx context.Context, deck *domain.Deck) error

	// GetDeck retrieves a deck by its ID.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// ListDecks returns the decks owned by userID ordered by creation time.
	// An empty result is not an error.
	ListDecks(ctx context.Context, userID uuid.UUID) ([]*domain.Deck, error)

	// GetCards returns every card in the deck ordered by position.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error)

	// GetCard retrieves a single card by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// AddCards appends new, never-rated cards built from drafts to the end of
	// the deck, in draft order, and returns them. Positions are assigned by
	// the store. The whole batch is added atomically.
	// Returns ErrDeckNotFound if the deck does not exist and ErrInvalidEntity
	// if any draft is invalid (nothing is added in either case).
	AddCards(ctx context.Context, deckID uuid.UUID, drafts []domain.CardDraft, now time.Time) ([]*domain.Card, error)

	// SaveCard persists the memory state of an existing card.
	//
	// The write applies only when the stored last_reviewed_at is absent or not
	// newer than card.Memory.LastReviewedAt; otherwise ErrStaleWrite is
	// returned and the stored state is kept. Returns ErrDeckNotFound or
	// ErrCardNotFound when the deck or the card no longer exists.
	SaveCard(ctx context.Context, card *domain.Card) error

	// DeleteDeck removes a deck and all of its cards.
	// Returns ErrDeckNotFound if the deck does not exist.
	DeleteDeck(ctx context.Context, id uuid.UUID) error
}
