package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deck-specific validation errors
var (
	ErrDeckIDEmpty       = errors.New("deck ID cannot be empty")
	ErrDeckUserIDEmpty   = errors.New("deck user ID cannot be empty")
	ErrDeckNameEmpty     = errors.New("deck name cannot be empty")
	ErrDeckSourceInvalid = errors.New("invalid deck source")
)

// DeckSource records how a deck's cards were produced.
type DeckSource string

// Possible deck sources
const (
	DeckSourceManual   DeckSource = "manual"
	DeckSourceSystem   DeckSource = "system"
	DeckSourceDocument DeckSource = "doc"
)

// Deck is a named, user-owned collection of cards.
type Deck struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Source    DeckSource `json:"source"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewDeck creates a new, empty deck owned by userID.
func NewDeck(userID uuid.UUID, name string, source DeckSource) (*Deck, error) {
	if source == "" {
		source = DeckSourceManual
	}

	deck := &Deck{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks if the Deck has valid data.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrDeckIDEmpty
	}
	if d.UserID == uuid.Nil {
		return ErrDeckUserIDEmpty
	}
	if d.Name == "" {
		return ErrDeckNameEmpty
	}
	switch d.Source {
	case DeckSourceManual, DeckSourceSystem, DeckSourceDocument:
		return nil
	default:
		return ErrDeckSourceInvalid
	}
}
