// Package domain contains the core study entities: decks, cards, the per-card
// memory state driving spaced repetition, and the user-scoped daily progress
// record. It is independent of any storage or delivery mechanism.
package domain
