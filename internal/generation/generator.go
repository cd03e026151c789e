package generation

import (
	"context"

	"github.com/mediflash/mediflash-api/internal/domain"
)

// MaxTextLength bounds the source text accepted for one extraction.
const MaxTextLength = 200_000

// Generator turns study material into flashcard drafts.
type Generator interface {
	// GenerateCards extracts question/answer and cloze drafts from text.
	// focus optionally names topics to emphasise and may be empty.
	// Drafts come back in document order. Errors wrap the sentinels in this
	// package (ErrEmptyText, ErrInvalidResponse, ErrContentBlocked,
	// ErrTransientFailure).
	GenerateCards(ctx context.Context, text, focus string) ([]domain.CardDraft, error)
}
