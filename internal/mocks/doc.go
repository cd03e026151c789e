// Package mocks provides centralized mock implementations for testing.
//
// The mocks are map-backed fakes of the store and generation interfaces.
// Each one keeps enough state to behave like the real implementation and
// exposes function fields to override individual methods or inject failures:
//
//	decks := mocks.NewMockDeckStore()
//	decks.SaveCardFn = func(ctx context.Context, card *domain.Card) error {
//	    return store.ErrDeckNotFound
//	}
package mocks
