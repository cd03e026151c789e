package domain

import (
	"fmt"
	"time"
)

// Memory state defaults applied to freshly created cards.
const (
	// DefaultEase is the ease factor assigned to a card that has never been rated.
	DefaultEase = 2.5

	// MinEase is the lowest ease factor a card may ever carry.
	MinEase = 1.3
)

// ReviewEntry is a single rating application recorded in a card's history.
type ReviewEntry struct {
	Rating Rating    `json:"rating"`
	Time   time.Time `json:"time"`
}

// MemoryState is the persistent spaced repetition state of a single card.
// It is owned by the deck that contains the card and only changes through
// the rating processor in package srs.
type MemoryState struct {
	IsNew          bool          `json:"is_new"`
	Ease           float64       `json:"ease"`
	IntervalDays   int           `json:"interval_days"`
	Repetitions    int           `json:"repetitions"`
	DueAt          time.Time     `json:"due_at"`
	LastReviewedAt *time.Time    `json:"last_reviewed_at,omitempty"`
	History        []ReviewEntry `json:"history"`
}

// NewMemoryState returns the state of a card that has never been rated.
// The card is due immediately.
func NewMemoryState(now time.Time) MemoryState {
	return MemoryState{
		IsNew:        true,
		Ease:         DefaultEase,
		IntervalDays: 0,
		Repetitions:  0,
		DueAt:        now,
		History:      []ReviewEntry{},
	}
}

// Clone returns a deep copy of the state. History and LastReviewedAt are
// never shared between the copy and the original.
func (m MemoryState) Clone() MemoryState {
	out := m
	if m.LastReviewedAt != nil {
		t := *m.LastReviewedAt
		out.LastReviewedAt = &t
	}
	out.History = make([]ReviewEntry, len(m.History))
	copy(out.History, m.History)
	return out
}

// IsDue reports whether a previously reviewed card has re-entered the review pool.
// New cards are never "due"; they are scheduled through the new-card intake.
func (m MemoryState) IsDue(now time.Time) bool {
	return !m.IsNew && !m.DueAt.After(now)
}

// Validate checks the memory state invariants.
func (m MemoryState) Validate() error {
	if m.Ease < MinEase {
		return fmt.Errorf("%w: ease %.2f below minimum %.2f", ErrInvalidMemoryState, m.Ease, MinEase)
	}
	if m.IntervalDays < 0 {
		return fmt.Errorf("%w: negative interval %d", ErrInvalidMemoryState, m.IntervalDays)
	}
	if m.Repetitions < 0 {
		return fmt.Errorf("%w: negative repetitions %d", ErrInvalidMemoryState, m.Repetitions)
	}
	if m.IsNew && len(m.History) > 0 {
		return fmt.Errorf("%w: new card with %d history entries", ErrInvalidMemoryState, len(m.History))
	}
	if !m.IsNew && m.LastReviewedAt == nil {
		return fmt.Errorf("%w: reviewed card without last_reviewed_at", ErrInvalidMemoryState)
	}
	return nil
}
