// Package store defines the persistence contracts for decks, cards and daily
// progress, together with the error values every backend maps its failures
// to. Implementations live under internal/platform.
package store
