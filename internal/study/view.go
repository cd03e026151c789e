package study

import (
	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
)

// CardView is the learner-facing part of a card.
// Answer is empty until the answer has been revealed.
type CardView struct {
	ID       uuid.UUID       `json:"id"`
	Kind     domain.CardKind `json:"kind"`
	Question string          `json:"question"`
	Answer   string          `json:"answer,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Media    string          `json:"media,omitempty"`
	Chapter  string          `json:"chapter,omitempty"`
	IsNew    bool            `json:"is_new"`
}

// View is what the presentation layer receives after every transition.
type View struct {
	SessionID   uuid.UUID `json:"session_id"`
	DeckID      uuid.UUID `json:"deck_id"`
	Phase       Phase     `json:"phase"`
	Card        *CardView `json:"card,omitempty"`
	Position    int       `json:"position"`
	QueueLength int       `json:"queue_length"`
	Counters    Counters  `json:"counters"`
	NewCardCap  int       `json:"new_card_cap"`

	// PendingRetry is set after a persistence failure until the rating is
	// saved, replaced or the session ends.
	PendingRetry bool `json:"pending_retry"`
}

// view builds the View for the current state. Called with s.mu held.
func (s *Session) view() View {
	v := View{
		SessionID:    s.id,
		DeckID:       s.deckID,
		Phase:        s.phase,
		Position:     s.cursor,
		QueueLength:  len(s.queue),
		Counters:     s.counters,
		NewCardCap:   s.newCardCap,
		PendingRetry: s.pending != nil,
	}

	switch s.phase {
	case PhasePresentingQuestion:
		v.Card = newCardView(s.queue[s.cursor], false)
	case PhasePresentingAnswer:
		v.Card = newCardView(s.queue[s.cursor], true)
	}
	return v
}

func newCardView(c *domain.Card, withAnswer bool) *CardView {
	cv := &CardView{
		ID:       c.ID,
		Kind:     c.Kind,
		Question: c.Question,
		Tags:     append([]string(nil), c.Tags...),
		Media:    c.Media,
		Chapter:  c.Chapter,
		IsNew:    c.Memory.IsNew,
	}
	if withAnswer {
		cv.Answer = c.Answer
	}
	return cv
}
