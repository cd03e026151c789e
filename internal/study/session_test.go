package study

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/domain/srs"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeSaver records saved cards and fails while err is set.
type fakeSaver struct {
	err   error
	calls int
	saved []*domain.Card
}

func (f *fakeSaver) SaveCard(ctx context.Context, card *domain.Card) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, card)
	return nil
}

// testClock is a manually advanced time source.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newCards(t *testing.T, deckID uuid.UUID, from, n int) []*domain.Card {
	t.Helper()
	cards := make([]*domain.Card, 0, n)
	for i := from; i < from+n; i++ {
		c, err := domain.NewCard(deckID, i, domain.CardDraft{
			Question: fmt.Sprintf("What is the normal range of lab value %d?", i),
			Answer:   fmt.Sprintf("Range %d", i),
		}, t0.AddDate(0, 0, -30))
		require.NoError(t, err)
		cards = append(cards, c)
	}
	return cards
}

func dueCard(t *testing.T, deckID uuid.UUID, pos int, due time.Time) *domain.Card {
	t.Helper()
	c := newCards(t, deckID, pos, 1)[0]
	last := due.AddDate(0, 0, -6)
	c.Memory.IsNew = false
	c.Memory.Repetitions = 2
	c.Memory.IntervalDays = 6
	c.Memory.LastReviewedAt = &last
	c.Memory.DueAt = due
	c.Memory.History = []domain.ReviewEntry{
		{Rating: domain.RatingGood, Time: last.AddDate(0, 0, -1)},
		{Rating: domain.RatingGood, Time: last},
	}
	return c
}

func newTestSession(
	t *testing.T,
	queue []*domain.Card,
	newCardCap int,
	saver CardSaver,
	opts ...Option,
) (*Session, *testClock) {
	t.Helper()
	clock := &testClock{now: t0}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewSession(uuid.New(), uuid.New(), queue, newCardCap, srs.NewDefaultService(), saver, opts...), clock
}

// study reveals and rates the current card.
func study(t *testing.T, s *Session, rating domain.Rating) View {
	t.Helper()
	_, err := s.Reveal()
	require.NoError(t, err)
	view, err := s.Rate(context.Background(), rating)
	require.NoError(t, err)
	return view
}

func TestNewSessionEmptyQueueCompletes(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession(t, nil, 20, &fakeSaver{})
	view := s.View()

	assert.Equal(t, PhaseCompleted, view.Phase)
	assert.Nil(t, view.Card)
	assert.Equal(t, 0, view.QueueLength)
	assert.Equal(t, Counters{}, view.Counters)
}

func TestSessionRevealShowsAnswer(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()

	s, _ := newTestSession(t, newCards(t, deckID, 0, 2), 20, &fakeSaver{})

	view := s.View()
	assert.Equal(t, PhasePresentingQuestion, view.Phase)
	require.NotNil(t, view.Card)
	assert.Empty(t, view.Card.Answer)
	assert.True(t, view.Card.IsNew)

	view, err := s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, PhasePresentingAnswer, view.Phase)
	assert.Equal(t, "Range 0", view.Card.Answer)
}

func TestSessionPhaseGuards(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	saver := &fakeSaver{}
	s, _ := newTestSession(t, newCards(t, deckID, 0, 2), 20, saver)

	_, err := s.Rate(context.Background(), domain.RatingGood)
	assert.ErrorIs(t, err, ErrInvalidPhase, "rating before reveal")

	_, err = s.Decide(DecisionContinue)
	assert.ErrorIs(t, err, ErrInvalidPhase, "decision without limit")

	_, err = s.Reveal()
	require.NoError(t, err)
	_, err = s.Reveal()
	assert.ErrorIs(t, err, ErrInvalidPhase, "double reveal")

	var sessionErr *SessionError
	require.True(t, errors.As(err, &sessionErr))
	assert.Equal(t, "reveal", sessionErr.Operation)

	assert.Zero(t, saver.calls)
}

func TestSessionInvalidRatingChangesNothing(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	saver := &fakeSaver{}
	queue := []*domain.Card{dueCard(t, deckID, 0, t0.AddDate(0, 0, -1))}
	before := queue[0].Clone()

	s, _ := newTestSession(t, queue, 20, saver)
	_, err := s.Reveal()
	require.NoError(t, err)
	revealed := s.View()

	for _, r := range []domain.Rating{0, 5, 42} {
		view, err := s.Rate(context.Background(), r)
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
		assert.Equal(t, revealed, view)
	}

	assert.Zero(t, saver.calls)
	assert.Equal(t, before, queue[0])
	assert.Equal(t, before, s.queue[0])
}

func TestSessionDailyLimitReachedOnTwentiethNewCard(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	saver := &fakeSaver{}

	queue := srs.BuildQueue(newCards(t, deckID, 0, 25), t0, 20)
	require.Len(t, queue, 20)

	s, _ := newTestSession(t, queue, 20, saver)

	for i := 1; i < 20; i++ {
		view := study(t, s, domain.RatingGood)
		require.Equal(t, PhasePresentingQuestion, view.Phase, "rating %d", i)
		assert.Equal(t, i, view.Position)
	}

	view := study(t, s, domain.RatingGood)
	assert.Equal(t, PhaseLimitReached, view.Phase)
	assert.Equal(t, 20, view.Counters.NewLearned)
	assert.Equal(t, 0, view.Counters.Reviewed)
	assert.Nil(t, view.Card)
	assert.Len(t, saver.saved, 20)

	view, err := s.Decide(DecisionContinue)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, view.Phase)
}

func TestSessionReviewOnlyDropsRemainingNewCards(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()

	// three new cards allowed, eight queued
	s, _ := newTestSession(t, newCards(t, deckID, 0, 8), 3, &fakeSaver{})

	study(t, s, domain.RatingGood)
	study(t, s, domain.RatingHard)
	view := study(t, s, domain.RatingEasy)
	require.Equal(t, PhaseLimitReached, view.Phase)
	require.Equal(t, 8, view.QueueLength)

	view, err := s.Decide(DecisionReviewOnly)
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, view.Phase, "only new cards remained")
	assert.Equal(t, 3, view.QueueLength)
	assert.Equal(t, Counters{NewLearned: 3}, view.Counters)
}

func TestSessionReviewOnlyKeepsDueCards(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	fresh := newCards(t, deckID, 0, 3)
	due := dueCard(t, deckID, 10, t0.Add(-time.Hour))

	queue := []*domain.Card{fresh[0], fresh[1], due, fresh[2]}
	s, _ := newTestSession(t, queue, 1, &fakeSaver{})

	view := study(t, s, domain.RatingGood)
	require.Equal(t, PhaseLimitReached, view.Phase)

	view, err := s.Decide(DecisionReviewOnly)
	require.NoError(t, err)
	assert.Equal(t, PhasePresentingQuestion, view.Phase)
	assert.Equal(t, 2, view.QueueLength)
	assert.Equal(t, 1, view.Position)
	assert.Equal(t, due.ID, view.Card.ID)

	view = study(t, s, domain.RatingAgain)
	assert.Equal(t, PhaseCompleted, view.Phase)
	assert.Equal(t, Counters{NewLearned: 1, Reviewed: 1}, view.Counters)
}

func TestSessionContinueRaisesCap(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	s, _ := newTestSession(t, newCards(t, deckID, 0, 5), 2, &fakeSaver{})

	study(t, s, domain.RatingGood)
	view := study(t, s, domain.RatingGood)
	require.Equal(t, PhaseLimitReached, view.Phase)

	view, err := s.Decide(DecisionContinue)
	require.NoError(t, err)
	assert.Equal(t, PhasePresentingQuestion, view.Phase)
	assert.Equal(t, 2, view.Position)

	for i := 0; i < 3; i++ {
		view = study(t, s, domain.RatingGood)
	}
	assert.Equal(t, PhaseCompleted, view.Phase)
	assert.Equal(t, 5, view.Counters.NewLearned)
}

func TestSessionExitDecision(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	saver := &fakeSaver{}
	s, _ := newTestSession(t, newCards(t, deckID, 0, 4), 1, saver)

	view := study(t, s, domain.RatingGood)
	require.Equal(t, PhaseLimitReached, view.Phase)

	view, err := s.Decide(DecisionExit)
	require.NoError(t, err)
	assert.Equal(t, PhaseExited, view.Phase)
	assert.Equal(t, 1, view.Counters.NewLearned)
	assert.Len(t, saver.saved, 1, "applied ratings stay persisted")

	_, err = s.Reveal()
	assert.ErrorIs(t, err, ErrInvalidPhase)

	_, err = s.Decide("maybe")
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestSessionUnknownDecision(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, newCards(t, uuid.New(), 0, 2), 1, &fakeSaver{})
	study(t, s, domain.RatingGood)

	view, err := s.Decide("maybe")
	assert.ErrorIs(t, err, ErrInvalidDecision)
	assert.Equal(t, PhaseLimitReached, view.Phase)
}

func TestSessionPersistenceFailureDoesNotAdvance(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	saver := &fakeSaver{err: store.ErrDeckNotFound}
	s, clock := newTestSession(t, newCards(t, deckID, 0, 3), 20, saver)

	_, err := s.Reveal()
	require.NoError(t, err)
	before := s.View()

	view, err := s.Rate(context.Background(), domain.RatingGood)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	assert.Equal(t, PhasePresentingAnswer, view.Phase)
	assert.Equal(t, before.Position, view.Position)
	assert.Equal(t, before.Counters, view.Counters)
	assert.True(t, view.PendingRetry)
	assert.True(t, s.queue[0].Memory.IsNew, "queue keeps the unsaved state")

	// a retry later must not recompute the rating
	clock.Advance(10 * time.Minute)
	_, err = s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceFailure)

	saver.err = nil
	clock.Advance(10 * time.Minute)
	view, err = s.Retry(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhasePresentingQuestion, view.Phase)
	assert.Equal(t, 1, view.Position)
	assert.Equal(t, 1, view.Counters.NewLearned)
	assert.False(t, view.PendingRetry)

	require.Len(t, saver.saved, 1)
	saved := saver.saved[0]
	require.NotNil(t, saved.Memory.LastReviewedAt)
	assert.True(t, saved.Memory.LastReviewedAt.Equal(t0))
	assert.Len(t, saved.Memory.History, 1)
	assert.Equal(t, 3, saver.calls)

	_, err = s.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestSessionRerateAfterFailureReplacesPending(t *testing.T) {
	t.Parallel()
	saver := &fakeSaver{err: errors.New("connection reset")}
	s, _ := newTestSession(t, newCards(t, uuid.New(), 0, 2), 20, saver)

	_, err := s.Reveal()
	require.NoError(t, err)
	_, err = s.Rate(context.Background(), domain.RatingEasy)
	require.ErrorIs(t, err, ErrPersistenceFailure)

	saver.err = nil
	_, err = s.Rate(context.Background(), domain.RatingAgain)
	require.NoError(t, err)

	require.Len(t, saver.saved, 1)
	history := saver.saved[0].Memory.History
	require.Len(t, history, 1, "failed attempt is not part of history")
	assert.Equal(t, domain.RatingAgain, history[0].Rating)
}

func TestSessionCountsReviewsAndNotifies(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	queue := []*domain.Card{
		dueCard(t, deckID, 0, t0.AddDate(0, 0, -2)),
		newCards(t, deckID, 1, 1)[0],
	}

	var rated []RatedCard
	s, _ := newTestSession(t, queue, 20, &fakeSaver{}, WithOnRated(func(ctx context.Context, r RatedCard) {
		rated = append(rated, r)
	}))

	view := study(t, s, domain.RatingAgain)
	assert.Equal(t, Counters{Reviewed: 1}, view.Counters)
	view = study(t, s, domain.RatingGood)
	assert.Equal(t, Counters{NewLearned: 1, Reviewed: 1}, view.Counters)
	assert.Equal(t, PhaseCompleted, view.Phase)

	require.Len(t, rated, 2)
	assert.False(t, rated[0].WasNew)
	assert.Equal(t, domain.RatingAgain, rated[0].Rating)
	assert.Equal(t, 0, rated[0].Card.Memory.Repetitions)
	assert.True(t, rated[0].Card.Memory.DueAt.Equal(t0.AddDate(0, 0, 1)))
	assert.True(t, rated[1].WasNew)
	assert.Equal(t, s.ID(), rated[1].SessionID)
}

func TestSessionExitDiscardsPending(t *testing.T) {
	t.Parallel()
	saver := &fakeSaver{err: errors.New("disk full")}
	s, _ := newTestSession(t, newCards(t, uuid.New(), 0, 2), 20, saver)

	_, err := s.Reveal()
	require.NoError(t, err)
	_, err = s.Rate(context.Background(), domain.RatingGood)
	require.Error(t, err)

	view := s.Exit()
	assert.Equal(t, PhaseExited, view.Phase)
	assert.False(t, view.PendingRetry)
	assert.Equal(t, Counters{}, view.Counters)

	// exiting twice is harmless
	assert.Equal(t, view, s.Exit())
}

func TestParseDecision(t *testing.T) {
	t.Parallel()

	for _, d := range []Decision{DecisionContinue, DecisionReviewOnly, DecisionExit} {
		got, err := ParseDecision(string(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}

	_, err := ParseDecision("reviewOnly")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}
