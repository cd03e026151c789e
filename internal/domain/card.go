package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardQuestionEmpty is returned when a card has no question text.
	ErrCardQuestionEmpty = errors.New("card question cannot be empty")

	// ErrCardAnswerEmpty is returned when a qa card has no answer text.
	ErrCardAnswerEmpty = errors.New("card answer cannot be empty")

	// ErrCardKindInvalid is returned when a card kind is not recognised.
	ErrCardKindInvalid = errors.New("invalid card kind")
)

// CardKind distinguishes question/answer cards from cloze deletions.
type CardKind string

// Supported card kinds
const (
	CardKindQA    CardKind = "qa"
	CardKindCloze CardKind = "cloze"
)

// CardDraft is the raw material for a new card, as produced by manual
// authoring or by the document-extraction pipeline.
type CardDraft struct {
	Kind     CardKind `json:"kind"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
	Media    string   `json:"media,omitempty"`
	Chapter  string   `json:"chapter,omitempty"`
}

// Card is a flashcard within a deck together with its memory state.
// Position is the card's insertion order within the deck.
type Card struct {
	ID        uuid.UUID `json:"id"`
	DeckID    uuid.UUID `json:"deck_id"`
	Position  int       `json:"position"`
	Kind      CardKind  `json:"kind"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Tags      []string  `json:"tags,omitempty"`
	Media     string    `json:"media,omitempty"`
	Chapter   string    `json:"chapter,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Memory MemoryState `json:"memory"`
}

// NewCard creates a never-rated card in the given deck from a draft.
// The card is due at now and carries the default ease.
func NewCard(deckID uuid.UUID, position int, draft CardDraft, now time.Time) (*Card, error) {
	kind := draft.Kind
	if kind == "" {
		kind = CardKindQA
	}

	card := &Card{
		ID:        uuid.New(),
		DeckID:    deckID,
		Position:  position,
		Kind:      kind,
		Question:  strings.TrimSpace(draft.Question),
		Answer:    strings.TrimSpace(draft.Answer),
		Tags:      append([]string(nil), draft.Tags...),
		Media:     draft.Media,
		Chapter:   strings.TrimSpace(draft.Chapter),
		CreatedAt: now,
		UpdatedAt: now,
		Memory:    NewMemoryState(now),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	switch c.Kind {
	case CardKindQA:
		if c.Answer == "" {
			return ErrCardAnswerEmpty
		}
	case CardKindCloze:
		// the answer of a cloze card lives inside the question text
	default:
		return ErrCardKindInvalid
	}

	if c.Question == "" {
		return ErrCardQuestionEmpty
	}

	return c.Memory.Validate()
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	out.Memory = c.Memory.Clone()
	return &out
}
