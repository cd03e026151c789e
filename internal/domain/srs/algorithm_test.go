package srs

import (
	"testing"
	"time"

	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCalculateNewEase(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		rating   domain.Rating
		expected float64
	}{
		{
			name:     "Again lowers ease by 0.20",
			current:  2.5,
			rating:   domain.RatingAgain,
			expected: 2.3,
		},
		{
			name:     "Hard lowers ease by 0.15",
			current:  2.5,
			rating:   domain.RatingHard,
			expected: 2.35,
		},
		{
			name:     "Good leaves ease unchanged",
			current:  2.5,
			rating:   domain.RatingGood,
			expected: 2.5,
		},
		{
			name:     "Easy raises ease by 0.15",
			current:  2.5,
			rating:   domain.RatingEasy,
			expected: 2.65,
		},
		{
			name:     "Ease is floored at 1.3",
			current:  1.35,
			rating:   domain.RatingAgain,
			expected: 1.3, // 1.35 - 0.2 = 1.15, but min is 1.3
		},
		{
			name:     "Hard at the floor stays at the floor",
			current:  1.3,
			rating:   domain.RatingHard,
			expected: 1.3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewEase(tc.current, tc.rating, params)
			assert.InDelta(t, tc.expected, got, 0.0001)
		})
	}
}

func TestCalculateNewEaseKeepsTwoDecimals(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	ease := 2.5
	for range 3 {
		ease = calculateNewEase(ease, domain.RatingHard, params)
	}
	assert.Equal(t, 2.05, ease)

	for range 2 {
		ease = calculateNewEase(ease, domain.RatingEasy, params)
	}
	assert.Equal(t, 2.35, ease)
}

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()

	testCases := []struct {
		name        string
		repetitions int
		previous    int
		ease        float64
		expected    int
	}{
		{name: "first success", repetitions: 1, previous: 0, ease: 2.5, expected: 1},
		{name: "second success", repetitions: 2, previous: 1, ease: 2.5, expected: 6},
		{name: "third success multiplies by ease", repetitions: 3, previous: 6, ease: 2.5, expected: 15},
		{name: "rounds half up", repetitions: 4, previous: 15, ease: 2.5, expected: 38}, // 37.5
		{name: "never below one day", repetitions: 3, previous: 0, ease: 1.3, expected: 1},
		{name: "capped at max interval", repetitions: 9, previous: 30000, ease: 2.5, expected: DefaultMaxIntervalDays},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewInterval(tc.repetitions, tc.previous, tc.ease, params)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCalculateNextStateDoesNotMutateInput(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	state := domain.NewMemoryState(now)
	state.History = make([]domain.ReviewEntry, 0, 4) // spare capacity must not be shared

	next := calculateNextState(state, domain.RatingGood, now, params)

	assert.True(t, state.IsNew)
	assert.Empty(t, state.History)
	assert.Nil(t, state.LastReviewedAt)

	assert.False(t, next.IsNew)
	assert.Len(t, next.History, 1)
	assert.Equal(t, domain.RatingGood, next.History[0].Rating)
	assert.True(t, next.History[0].Time.Equal(now))
	assert.Equal(t, 1, next.Repetitions)
	assert.Equal(t, 1, next.IntervalDays)
	assert.True(t, next.DueAt.Equal(now.AddDate(0, 0, 1)))
	if assert.NotNil(t, next.LastReviewedAt) {
		assert.True(t, next.LastReviewedAt.Equal(now))
	}
}

func TestCalculateNextStateLapse(t *testing.T) {
	t.Parallel() // Enable parallel execution
	params := NewDefaultParams()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -16)

	state := domain.MemoryState{
		IsNew:          false,
		Ease:           2.5,
		IntervalDays:   15,
		Repetitions:    3,
		DueAt:          now.AddDate(0, 0, -1),
		LastReviewedAt: &last,
		History: []domain.ReviewEntry{
			{Rating: domain.RatingGood, Time: last.AddDate(0, 0, -7)},
			{Rating: domain.RatingGood, Time: last.AddDate(0, 0, -1)},
			{Rating: domain.RatingGood, Time: last},
		},
	}

	next := calculateNextState(state, domain.RatingAgain, now, params)

	assert.Equal(t, 0, next.Repetitions)
	assert.Equal(t, 1, next.IntervalDays)
	assert.InDelta(t, 2.3, next.Ease, 0.0001)
	assert.True(t, next.DueAt.Equal(now.AddDate(0, 0, 1)))
	assert.Len(t, next.History, 4)
	assert.Len(t, state.History, 3)
}
