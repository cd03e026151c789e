package study

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/domain/srs"
)

// Phase is the state of a study session.
type Phase string

// Session phases
const (
	PhasePresentingQuestion Phase = "presenting_question"
	PhasePresentingAnswer   Phase = "presenting_answer"
	PhaseLimitReached       Phase = "limit_reached"
	PhaseCompleted          Phase = "completed"
	PhaseExited             Phase = "exited"
)

// Terminal reports whether no further action is possible in the phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseExited
}

// Decision is the caller's choice at PhaseLimitReached.
type Decision string

// Limit decisions
const (
	// DecisionContinue keeps going through the queue and stops checking the cap.
	DecisionContinue Decision = "continue"
	// DecisionReviewOnly drops the remaining new cards from the queue.
	DecisionReviewOnly Decision = "review_only"
	// DecisionExit ends the session.
	DecisionExit Decision = "exit"
)

// ParseDecision converts s to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionContinue, DecisionReviewOnly, DecisionExit:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
	}
}

// Counters are the per-session progress counters.
type Counters struct {
	NewLearned int `json:"new_learned"`
	Reviewed   int `json:"reviewed"`
}

// CardSaver persists a card's updated memory state.
// store.DeckStore satisfies it.
type CardSaver interface {
	SaveCard(ctx context.Context, card *domain.Card) error
}

// RatedCard describes a rating that has been persisted.
type RatedCard struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Card      *domain.Card // state after the rating
	Rating    domain.Rating
	WasNew    bool
	RatedAt   time.Time
}

// pendingRating is a computed rating whose card has not been saved yet.
type pendingRating struct {
	card   *domain.Card
	rating domain.Rating
	wasNew bool
	at     time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now as the session's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOnRated registers fn to be called after each successfully persisted rating.
// fn runs while the session is locked and must not call back into it.
func WithOnRated(fn func(ctx context.Context, rated RatedCard)) Option {
	return func(s *Session) {
		s.onRated = fn
	}
}

// Session is a single study session over a fixed queue of cards.
// All methods are safe for concurrent use; operations are serialized.
type Session struct {
	mu sync.Mutex

	id     uuid.UUID
	userID uuid.UUID
	deckID uuid.UUID

	queue    []*domain.Card
	cursor   int
	counters Counters
	phase    Phase

	newCardCap   int
	capDisabled  bool
	pending      *pendingRating
	rater        srs.Service
	saver        CardSaver
	now          func() time.Time
	onRated      func(ctx context.Context, rated RatedCard)
	startedAt    time.Time
	lastActivity time.Time
}

// NewSession creates a session over queue. newCardCap is the number of new
// cards the learner may learn before the session stops at PhaseLimitReached.
// An empty queue starts the session in PhaseCompleted.
func NewSession(
	userID, deckID uuid.UUID,
	queue []*domain.Card,
	newCardCap int,
	rater srs.Service,
	saver CardSaver,
	opts ...Option,
) *Session {
	if rater == nil {
		panic("rater cannot be nil")
	}
	if saver == nil {
		panic("saver cannot be nil")
	}

	s := &Session{
		id:         uuid.New(),
		userID:     userID,
		deckID:     deckID,
		queue:      append([]*domain.Card(nil), queue...),
		newCardCap: newCardCap,
		rater:      rater,
		saver:      saver,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startedAt = s.now()
	s.lastActivity = s.startedAt
	if len(s.queue) == 0 {
		s.phase = PhaseCompleted
	} else {
		s.phase = PhasePresentingQuestion
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// UserID returns the owner of the session.
func (s *Session) UserID() uuid.UUID { return s.userID }

// DeckID returns the deck being studied.
func (s *Session) DeckID() uuid.UUID { return s.deckID }

// View returns the current presentation state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// LastActivity returns the time of the most recent action on the session.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Reveal shows the answer of the current card.
func (s *Session) Reveal() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePresentingQuestion {
		return s.view(), newPhaseError("reveal", s.phase)
	}
	s.phase = PhasePresentingAnswer
	s.touch()
	return s.view(), nil
}

// Rate applies rating to the current card, persists the result and advances.
//
// An invalid rating returns an error wrapping domain.ErrInvalidRating and
// changes nothing. If persistence fails the error wraps ErrPersistenceFailure,
// the cursor and counters stay put and the computed card is kept for Retry.
// Rating again after a failure recomputes from the unsaved card state.
func (s *Session) Rate(ctx context.Context, rating domain.Rating) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePresentingAnswer {
		return s.view(), newPhaseError("rate", s.phase)
	}
	if err := domain.ValidateRating(rating); err != nil {
		return s.view(), err
	}

	current := s.queue[s.cursor]
	now := s.now()
	updated, err := s.rater.ApplyRating(current, rating, now)
	if err != nil {
		return s.view(), &SessionError{Operation: "rate", Message: "rating could not be applied", Err: err}
	}

	s.pending = &pendingRating{
		card:   updated,
		rating: rating,
		wasNew: current.Memory.IsNew,
		at:     now,
	}
	s.touch()
	return s.commit(ctx, "rate")
}

// Retry re-attempts persistence of the rating that last failed to save,
// without recomputing it.
func (s *Session) Retry(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return s.view(), &SessionError{Operation: "retry", Message: "nothing to retry", Err: ErrNothingToRetry}
	}
	s.touch()
	return s.commit(ctx, "retry")
}

// Decide resolves PhaseLimitReached.
func (s *Session) Decide(decision Decision) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLimitReached {
		return s.view(), newPhaseError("decide", s.phase)
	}

	switch decision {
	case DecisionContinue:
		s.capDisabled = true
		s.advance()
	case DecisionReviewOnly:
		s.dropUpcomingNewCards()
		s.advance()
	case DecisionExit:
		s.phase = PhaseExited
	default:
		return s.view(), &SessionError{
			Operation: "decide",
			Message:   fmt.Sprintf("unknown decision %q", decision),
			Err:       ErrInvalidDecision,
		}
	}
	s.touch()
	return s.view(), nil
}

// Exit ends the session from any non-terminal phase. Ratings already saved
// stay saved; an unsaved pending rating is discarded.
func (s *Session) Exit() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.phase.Terminal() {
		s.phase = PhaseExited
		s.pending = nil
		s.touch()
	}
	return s.view()
}

// commit saves the pending card and, on success, advances the session.
// Called with s.mu held.
func (s *Session) commit(ctx context.Context, operation string) (View, error) {
	p := s.pending
	if err := s.saver.SaveCard(ctx, p.card); err != nil {
		return s.view(), newPersistenceError(operation, err)
	}

	s.pending = nil
	s.queue[s.cursor] = p.card
	if p.wasNew {
		s.counters.NewLearned++
	} else {
		s.counters.Reviewed++
	}

	if s.onRated != nil {
		s.onRated(ctx, RatedCard{
			SessionID: s.id,
			UserID:    s.userID,
			Card:      p.card,
			Rating:    p.rating,
			WasNew:    p.wasNew,
			RatedAt:   p.at,
		})
	}

	if p.wasNew && !s.capDisabled && s.counters.NewLearned >= s.newCardCap {
		s.phase = PhaseLimitReached
		return s.view(), nil
	}

	s.advance()
	return s.view(), nil
}

// advance moves past the current card. Called with s.mu held.
func (s *Session) advance() {
	s.cursor++
	if s.cursor >= len(s.queue) {
		s.cursor = len(s.queue)
		s.phase = PhaseCompleted
		return
	}
	s.phase = PhasePresentingQuestion
}

// dropUpcomingNewCards removes never-rated cards after the cursor.
// Cards at or before the cursor are left alone. Called with s.mu held.
func (s *Session) dropUpcomingNewCards() {
	kept := s.queue[:s.cursor+1]
	for _, c := range s.queue[s.cursor+1:] {
		if !c.Memory.IsNew {
			kept = append(kept, c)
		}
	}
	s.queue = kept
}

func (s *Session) touch() {
	s.lastActivity = s.now()
}
