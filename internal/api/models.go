package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/generation"
)

// CreateDeckRequest is the payload of POST /api/decks.
type CreateDeckRequest struct {
	Name   string `json:"name"   validate:"required,max=200"`
	Source string `json:"source" validate:"omitempty,oneof=manual system doc"`
}

// DeckResponse is the public representation of a deck.
type DeckResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// CardDraftRequest is one card of an AddCardsRequest.
type CardDraftRequest struct {
	Kind     string   `json:"kind"     validate:"omitempty,oneof=qa cloze"`
	Question string   `json:"question" validate:"required"`
	Answer   string   `json:"answer"   validate:"required"`
	Tags     []string `json:"tags"     validate:"omitempty,max=20,dive,required,max=50"`
	Media    string   `json:"media"    validate:"omitempty,max=2048"`
	Chapter  string   `json:"chapter"  validate:"omitempty,max=200"`
}

// AddCardsRequest is the payload of POST /api/decks/{id}/cards.
type AddCardsRequest struct {
	Cards []CardDraftRequest `json:"cards" validate:"required,min=1,max=500,dive"`
}

// CardResponse is the public representation of a card and its schedule.
type CardResponse struct {
	ID             uuid.UUID  `json:"id"`
	DeckID         uuid.UUID  `json:"deck_id"`
	Position       int        `json:"position"`
	Kind           string     `json:"kind"`
	Question       string     `json:"question"`
	Answer         string     `json:"answer"`
	Tags           []string   `json:"tags,omitempty"`
	Media          string     `json:"media,omitempty"`
	Chapter        string     `json:"chapter,omitempty"`
	IsNew          bool       `json:"is_new"`
	Ease           float64    `json:"ease"`
	IntervalDays   int        `json:"interval_days"`
	Repetitions    int        `json:"repetitions"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// CardsResponse wraps a list of cards.
type CardsResponse struct {
	Cards []CardResponse `json:"cards"`
}

// CreateExtractionRequest is the payload of POST /api/decks/{id}/extractions.
type CreateExtractionRequest struct {
	Text  string `json:"text"  validate:"required"`
	Focus string `json:"focus" validate:"omitempty,max=500"`
}

// Validate implements the validation hook used by shared.ValidateRequest.
func (r CreateExtractionRequest) Validate() error {
	if len(r.Text) > generation.MaxTextLength {
		return domain.NewValidationError("text", "is too long", domain.ErrValidation)
	}
	return validateStruct(r)
}

// ExtractionAcceptedResponse is returned when an extraction job is queued.
type ExtractionAcceptedResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// RateRequest is the payload of POST /api/sessions/{id}/rate.
type RateRequest struct {
	Rating int `json:"rating"`
}

// DecisionRequest is the payload of POST /api/sessions/{id}/decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required"`
}

func deckToResponse(d *domain.Deck) DeckResponse {
	return DeckResponse{
		ID:        d.ID,
		Name:      d.Name,
		Source:    string(d.Source),
		CreatedAt: d.CreatedAt,
	}
}

func cardToResponse(c *domain.Card) CardResponse {
	return CardResponse{
		ID:             c.ID,
		DeckID:         c.DeckID,
		Position:       c.Position,
		Kind:           string(c.Kind),
		Question:       c.Question,
		Answer:         c.Answer,
		Tags:           c.Tags,
		Media:          c.Media,
		Chapter:        c.Chapter,
		IsNew:          c.Memory.IsNew,
		Ease:           c.Memory.Ease,
		IntervalDays:   c.Memory.IntervalDays,
		Repetitions:    c.Memory.Repetitions,
		DueAt:          c.Memory.DueAt,
		LastReviewedAt: c.Memory.LastReviewedAt,
	}
}

func cardsToResponse(cards []*domain.Card) CardsResponse {
	out := CardsResponse{Cards: make([]CardResponse, 0, len(cards))}
	for _, c := range cards {
		out.Cards = append(out.Cards, cardToResponse(c))
	}
	return out
}

func draftsFromRequest(req AddCardsRequest) []domain.CardDraft {
	drafts := make([]domain.CardDraft, 0, len(req.Cards))
	for _, c := range req.Cards {
		drafts = append(drafts, domain.CardDraft{
			Kind:     domain.CardKind(c.Kind),
			Question: c.Question,
			Answer:   c.Answer,
			Tags:     c.Tags,
			Media:    c.Media,
			Chapter:  c.Chapter,
		})
	}
	return drafts
}
