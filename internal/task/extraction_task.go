package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/generation"
	"github.com/mediflash/mediflash-api/internal/store"
)

// ExtractionRequest is the payload of an events.TypeExtractionRequested event.
type ExtractionRequest struct {
	JobID  uuid.UUID `json:"job_id"`
	UserID uuid.UUID `json:"user_id"`
	DeckID uuid.UUID `json:"deck_id"`
	Text   string    `json:"text"`
	Focus  string    `json:"focus,omitempty"`
}

// CardAdder appends cards to a deck. store.DeckStore satisfies it.
type CardAdder interface {
	AddCards(ctx context.Context, deckID uuid.UUID, drafts []domain.CardDraft, now time.Time) ([]*domain.Card, error)
}

// ExtractionTask turns a document into new cards at the end of a deck.
type ExtractionTask struct {
	req       ExtractionRequest
	generator generation.Generator
	cards     CardAdder
	tracker   *Tracker
	logger    *slog.Logger
	now       func() time.Time
}

var _ Task = (*ExtractionTask)(nil)

// NewExtractionTask creates a task for req. tracker may be nil.
func NewExtractionTask(
	req ExtractionRequest,
	generator generation.Generator,
	cards CardAdder,
	tracker *Tracker,
	logger *slog.Logger,
) (*ExtractionTask, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator cannot be nil")
	}
	if cards == nil {
		return nil, fmt.Errorf("card store cannot be nil")
	}
	if req.JobID == uuid.Nil || req.DeckID == uuid.Nil {
		return nil, fmt.Errorf("%w: job and deck IDs are required", domain.ErrInvalidID)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionTask{
		req:       req,
		generator: generator,
		cards:     cards,
		tracker:   tracker,
		logger:    logger.With(slog.String("component", "extraction_task")),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// ID implements Task. It equals the job ID.
func (t *ExtractionTask) ID() uuid.UUID { return t.req.JobID }

// Type implements Task.
func (t *ExtractionTask) Type() string { return TypeExtraction }

// Execute generates drafts from the document and appends them to the deck in one batch.
func (t *ExtractionTask) Execute(ctx context.Context) error {
	log := t.logger.With(
		slog.String("job_id", t.req.JobID.String()),
		slog.String("deck_id", t.req.DeckID.String()),
	)

	drafts, err := t.generator.GenerateCards(ctx, t.req.Text, t.req.Focus)
	if err != nil {
		t.fail(extractionFailureMessage(err))
		return fmt.Errorf("generating cards: %w", err)
	}
	if len(drafts) == 0 {
		log.InfoContext(ctx, "generator returned no cards")
		t.complete(0)
		return nil
	}

	added, err := t.cards.AddCards(ctx, t.req.DeckID, drafts, t.now())
	if err != nil {
		t.fail(extractionFailureMessage(err))
		return fmt.Errorf("adding %d cards: %w", len(drafts), err)
	}

	log.InfoContext(ctx, "extracted cards added to deck", slog.Int("cards_added", len(added)))
	t.complete(len(added))
	return nil
}

func (t *ExtractionTask) fail(message string) {
	if t.tracker != nil {
		t.tracker.Fail(t.req.JobID, message)
	}
}

func (t *ExtractionTask) complete(n int) {
	if t.tracker != nil {
		t.tracker.Complete(t.req.JobID, n)
	}
}

// extractionFailureMessage maps an error to a message safe to show the client.
func extractionFailureMessage(err error) string {
	switch {
	case errors.Is(err, generation.ErrEmptyText):
		return "document text is empty"
	case errors.Is(err, generation.ErrContentBlocked):
		return "the document was rejected by the content filter"
	case errors.Is(err, generation.ErrInvalidResponse):
		return "the language model returned an unusable response"
	case errors.Is(err, generation.ErrTransientFailure):
		return "the language model is temporarily unavailable"
	case errors.Is(err, store.ErrDeckNotFound):
		return "deck no longer exists"
	case errors.Is(err, store.ErrInvalidEntity):
		return "generated cards were invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "extraction was cancelled"
	default:
		return "card extraction failed"
	}
}
