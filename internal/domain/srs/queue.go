package srs

import (
	"sort"
	"time"

	"github.com/mediflash/mediflash-api/internal/domain"
)

// BuildQueue orders a deck's cards into the study queue for one session.
//
// Due reviews (previously rated cards with DueAt <= now) come first, earliest
// due first, ties kept in input order. New cards follow in deck order
// (Position, then input order) and are truncated to newCardLimit. Cards that
// are neither due nor new are left out. A negative limit is treated as zero.
//
// The result is deterministic for identical inputs; the input slice is not
// reordered.
func BuildQueue(cards []*domain.Card, now time.Time, newCardLimit int) []*domain.Card {
	if newCardLimit < 0 {
		newCardLimit = 0
	}

	var due, fresh []*domain.Card
	for _, c := range cards {
		if c == nil {
			continue
		}
		switch {
		case c.Memory.IsNew:
			fresh = append(fresh, c)
		case c.Memory.IsDue(now):
			due = append(due, c)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Memory.DueAt.Before(due[j].Memory.DueAt)
	})
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Position < fresh[j].Position
	})

	if len(fresh) > newCardLimit {
		fresh = fresh[:newCardLimit]
	}

	queue := make([]*domain.Card, 0, len(due)+len(fresh))
	queue = append(queue, due...)
	queue = append(queue, fresh...)
	return queue
}

// CountNew returns the number of never-rated cards in cards.
func CountNew(cards []*domain.Card) int {
	n := 0
	for _, c := range cards {
		if c != nil && c.Memory.IsNew {
			n++
		}
	}
	return n
}
