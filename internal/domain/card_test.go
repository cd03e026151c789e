package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	t.Parallel()
	deckID := uuid.New()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	card, err := NewCard(deckID, 3, CardDraft{
		Question: "  What is the normal resting heart rate?  ",
		Answer:   "60-100 bpm",
		Tags:     []string{"cardiology"},
	}, now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, card.ID)
	assert.Equal(t, deckID, card.DeckID)
	assert.Equal(t, 3, card.Position)
	assert.Equal(t, CardKindQA, card.Kind)
	assert.Equal(t, "What is the normal resting heart rate?", card.Question)
	assert.True(t, card.Memory.IsNew)
	assert.Equal(t, DefaultEase, card.Memory.Ease)
	assert.Zero(t, card.Memory.IntervalDays)
	assert.Zero(t, card.Memory.Repetitions)
	assert.True(t, card.Memory.DueAt.Equal(now))
	assert.Nil(t, card.Memory.LastReviewedAt)
	assert.Empty(t, card.Memory.History)
}

func TestNewCardValidation(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	testCases := []struct {
		name    string
		deckID  uuid.UUID
		draft   CardDraft
		wantErr error
	}{
		{
			name:    "missing deck",
			deckID:  uuid.Nil,
			draft:   CardDraft{Question: "q", Answer: "a"},
			wantErr: ErrCardDeckIDEmpty,
		},
		{
			name:    "missing question",
			deckID:  uuid.New(),
			draft:   CardDraft{Question: "   ", Answer: "a"},
			wantErr: ErrCardQuestionEmpty,
		},
		{
			name:    "qa without answer",
			deckID:  uuid.New(),
			draft:   CardDraft{Question: "q"},
			wantErr: ErrCardAnswerEmpty,
		},
		{
			name:    "unknown kind",
			deckID:  uuid.New(),
			draft:   CardDraft{Kind: "essay", Question: "q", Answer: "a"},
			wantErr: ErrCardKindInvalid,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCard(tc.deckID, 0, tc.draft, now)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("cloze without answer", func(t *testing.T) {
		card, err := NewCard(uuid.New(), 0, CardDraft{
			Kind:     CardKindCloze,
			Question: "The {{c1::sinoatrial}} node is the primary pacemaker.",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, CardKindCloze, card.Kind)
	})
}

func TestCardCloneIsDeep(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	card, err := NewCard(uuid.New(), 0, CardDraft{Question: "q", Answer: "a", Tags: []string{"x"}}, now)
	require.NoError(t, err)
	card.Memory.History = append(card.Memory.History, ReviewEntry{Rating: RatingGood, Time: now})
	card.Memory.LastReviewedAt = &now

	clone := card.Clone()
	clone.Tags[0] = "y"
	clone.Memory.History[0].Rating = RatingAgain
	*clone.Memory.LastReviewedAt = now.Add(time.Hour)

	assert.Equal(t, "x", card.Tags[0])
	assert.Equal(t, RatingGood, card.Memory.History[0].Rating)
	assert.True(t, card.Memory.LastReviewedAt.Equal(now))
}

func TestMemoryStateValidate(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	valid := NewMemoryState(now)
	require.NoError(t, valid.Validate())

	lowEase := valid
	lowEase.Ease = 1.2
	assert.True(t, errors.Is(lowEase.Validate(), ErrInvalidMemoryState))

	negative := valid
	negative.IntervalDays = -1
	assert.ErrorIs(t, negative.Validate(), ErrInvalidMemoryState)

	reviewedWithoutTimestamp := valid
	reviewedWithoutTimestamp.IsNew = false
	assert.ErrorIs(t, reviewedWithoutTimestamp.Validate(), ErrInvalidMemoryState)
}

func TestMemoryStateIsDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	fresh := NewMemoryState(now.Add(-time.Hour))
	assert.False(t, fresh.IsDue(now), "new cards are never due reviews")

	reviewed := fresh
	reviewed.IsNew = false
	reviewed.DueAt = now
	assert.True(t, reviewed.IsDue(now), "due exactly now counts as due")

	reviewed.DueAt = now.Add(time.Second)
	assert.False(t, reviewed.IsDue(now))
}
