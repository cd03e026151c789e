package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
)

const cardColumns = `id, deck_id, position, kind, question, answer, tags, media, chapter,
	is_new, ease, interval_days, repetitions, due_at, last_reviewed_at, history,
	created_at, updated_at`

// PostgresDeckStore implements store.DeckStore using a PostgreSQL database.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeckStore creates a deck store over db, which may be a *sql.DB or
// a *sql.Tx. With a *sql.DB, multi-statement writes run in their own
// transaction; with a *sql.Tx they join the caller's.
// If logger is nil, a default logger will be used.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

// Ensure PostgresDeckStore implements store.DeckStore interface
var _ store.DeckStore = (*PostgresDeckStore)(nil)

// CreateDeck implements store.DeckStore.CreateDeck
func (s *PostgresDeckStore) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		log.Warn("deck validation failed during create",
			slog.String("error", err.Error()),
			slog.String("deck_id", deck.ID.String()))
		return store.NewStoreError("deck", "create", "invalid deck",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decks (id, user_id, name, source, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		deck.ID, deck.UserID, deck.Name, string(deck.Source), deck.CreatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate deck id", slog.String("deck_id", deck.ID.String()))
			return store.NewStoreError("deck", "create", "deck already exists", MapError(err))
		}
		log.Error("failed to create deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", deck.ID.String()))
		return store.NewStoreError("deck", "create", "failed to create deck", MapError(err))
	}

	log.Info("deck created",
		slog.String("deck_id", deck.ID.String()),
		slog.String("user_id", deck.UserID.String()))
	return nil
}

// GetDeck implements store.DeckStore.GetDeck
func (s *PostgresDeckStore) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, source, created_at
		FROM decks
		WHERE id = $1`, id)

	deck, err := scanDeck(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found", slog.String("deck_id", id.String()))
			return nil, store.ErrDeckNotFound
		}
		log.Error("failed to get deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", id.String()))
		return nil, store.NewStoreError("deck", "get", "failed to get deck", MapError(err))
	}
	return deck, nil
}

// ListDecks implements store.DeckStore.ListDecks
func (s *PostgresDeckStore) ListDecks(ctx context.Context, userID uuid.UUID) ([]*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, source, created_at
		FROM decks
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		log.Error("failed to list decks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("deck", "list", "failed to list decks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	decks := []*domain.Deck{}
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, store.NewStoreError("deck", "list", "failed to scan deck", MapError(err))
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("deck", "list", "failed to iterate decks", MapError(err))
	}
	return decks, nil
}

// GetCards implements store.DeckStore.GetCards
func (s *PostgresDeckStore) GetCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	exists, err := s.deckExists(ctx, s.db, deckID)
	if err != nil {
		log.Error("failed to check deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()))
		return nil, store.NewStoreError("card", "list", "failed to check deck", MapError(err))
	}
	if !exists {
		return nil, store.ErrDeckNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = $1 ORDER BY position`, deckID)
	if err != nil {
		log.Error("failed to query cards",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()))
		return nil, store.NewStoreError("card", "list", "failed to query cards", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card",
				slog.String("error", err.Error()),
				slog.String("deck_id", deckID.String()))
			return nil, store.NewStoreError("card", "list", "failed to scan card", MapError(err))
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "failed to iterate cards", MapError(err))
	}

	log.Debug("cards loaded",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(cards)))
	return cards, nil
}

// GetCard implements store.DeckStore.GetCard
func (s *PostgresDeckStore) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, store.NewStoreError("card", "get", "failed to get card", MapError(err))
	}
	return card, nil
}

// AddCards implements store.DeckStore.AddCards
// The deck row is locked for the duration of the insert so that concurrent
// batches for the same deck get contiguous, non-overlapping positions.
func (s *PostgresDeckStore) AddCards(
	ctx context.Context,
	deckID uuid.UUID,
	drafts []domain.CardDraft,
	now time.Time,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now = now.UTC()

	var added []*domain.Card
	err := store.InTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		var locked uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT id FROM decks WHERE id = $1 FOR UPDATE`, deckID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrDeckNotFound
		}
		if err != nil {
			return store.NewStoreError("card", "add", "failed to lock deck", MapError(err))
		}

		var next int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM cards WHERE deck_id = $1`, deckID).Scan(&next)
		if err != nil {
			return store.NewStoreError("card", "add", "failed to read next position", MapError(err))
		}

		added = make([]*domain.Card, 0, len(drafts))
		for i, draft := range drafts {
			card, err := domain.NewCard(deckID, next+i, draft, now)
			if err != nil {
				return store.NewStoreError("card", "add",
					fmt.Sprintf("draft %d is invalid", i),
					fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
			}
			if err := insertCard(ctx, tx, card); err != nil {
				if IsForeignKeyViolation(err) {
					return store.ErrDeckNotFound
				}
				return store.NewStoreError("card", "add", "failed to insert card", MapError(err))
			}
			added = append(added, card)
		}
		return nil
	})
	if err != nil {
		log.Warn("failed to add cards",
			slog.String("error", err.Error()),
			slog.String("deck_id", deckID.String()),
			slog.Int("drafts", len(drafts)))
		return nil, err
	}

	log.Info("cards added",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(added)))
	return added, nil
}

// SaveCard implements store.DeckStore.SaveCard
func (s *PostgresDeckStore) SaveCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during save", slog.String("error", err.Error()))
		return store.NewStoreError("card", "save", "invalid card",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	history, err := json.Marshal(card.Memory.History)
	if err != nil {
		return store.NewStoreError("card", "save", "failed to encode history", err)
	}

	var reviewedAt sql.NullTime
	if card.Memory.LastReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: card.Memory.LastReviewedAt.UTC(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET is_new = $3, ease = $4, interval_days = $5, repetitions = $6,
			due_at = $7, last_reviewed_at = $8, history = $9, updated_at = $10
		WHERE id = $1 AND deck_id = $2
			AND (last_reviewed_at IS NULL
				OR ($8::timestamptz IS NOT NULL AND last_reviewed_at <= $8::timestamptz))`,
		card.ID,
		card.DeckID,
		card.Memory.IsNew,
		card.Memory.Ease,
		card.Memory.IntervalDays,
		card.Memory.Repetitions,
		card.Memory.DueAt.UTC(),
		reviewedAt,
		history,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to save card", slog.String("error", err.Error()))
		return store.NewStoreError("card", "save", "failed to save card", MapError(err))
	}

	err = CheckRowsAffected(result, store.ErrStaleWrite)
	switch {
	case err == nil:
		log.Debug("card saved",
			slog.Int("interval_days", card.Memory.IntervalDays),
			slog.Time("due_at", card.Memory.DueAt))
		return nil
	case !errors.Is(err, store.ErrStaleWrite):
		return store.NewStoreError("card", "save", "failed to save card", err)
	}

	// Nothing matched: work out whether the deck, the card or the guard is to blame.
	err = s.unsavedCardError(ctx, card)
	log.Warn("card not saved", slog.String("reason", err.Error()))
	return err
}

// DeleteDeck implements store.DeckStore.DeleteDeck
func (s *PostgresDeckStore) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM decks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", id.String()))
		return store.NewStoreError("deck", "delete", "failed to delete deck", MapError(err))
	}
	if err := CheckRowsAffected(result, store.ErrDeckNotFound); err != nil {
		return err
	}

	log.Info("deck deleted", slog.String("deck_id", id.String()))
	return nil
}

func (s *PostgresDeckStore) unsavedCardError(ctx context.Context, card *domain.Card) error {
	exists, err := s.deckExists(ctx, s.db, card.DeckID)
	if err != nil {
		return store.NewStoreError("card", "save", "failed to check deck", MapError(err))
	}
	if !exists {
		return store.ErrDeckNotFound
	}

	var found bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1 AND deck_id = $2)`,
		card.ID, card.DeckID).Scan(&found)
	if err != nil {
		return store.NewStoreError("card", "save", "failed to check card", MapError(err))
	}
	if !found {
		return store.ErrCardNotFound
	}
	return store.ErrStaleWrite
}

func (s *PostgresDeckStore) deckExists(ctx context.Context, db store.DBTX, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM decks WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func insertCard(ctx context.Context, db store.DBTX, card *domain.Card) error {
	tags, err := json.Marshal(nonNilTags(card.Tags))
	if err != nil {
		return err
	}
	history, err := json.Marshal(card.Memory.History)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		card.ID,
		card.DeckID,
		card.Position,
		string(card.Kind),
		card.Question,
		card.Answer,
		tags,
		card.Media,
		card.Chapter,
		card.Memory.IsNew,
		card.Memory.Ease,
		card.Memory.IntervalDays,
		card.Memory.Repetitions,
		card.Memory.DueAt.UTC(),
		nil,
		history,
		card.CreatedAt.UTC(),
		card.UpdatedAt.UTC(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*domain.Deck, error) {
	var (
		deck   domain.Deck
		source string
	)
	if err := row.Scan(&deck.ID, &deck.UserID, &deck.Name, &source, &deck.CreatedAt); err != nil {
		return nil, err
	}
	deck.Source = domain.DeckSource(source)
	deck.CreatedAt = deck.CreatedAt.UTC()
	return &deck, nil
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card       domain.Card
		kind       string
		tags       []byte
		history    []byte
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&card.ID,
		&card.DeckID,
		&card.Position,
		&kind,
		&card.Question,
		&card.Answer,
		&tags,
		&card.Media,
		&card.Chapter,
		&card.Memory.IsNew,
		&card.Memory.Ease,
		&card.Memory.IntervalDays,
		&card.Memory.Repetitions,
		&card.Memory.DueAt,
		&reviewedAt,
		&history,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.Kind = domain.CardKind(kind)
	if err := json.Unmarshal(tags, &card.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(history, &card.Memory.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if card.Memory.History == nil {
		card.Memory.History = []domain.ReviewEntry{}
	}
	if len(card.Tags) == 0 {
		card.Tags = nil
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time.UTC()
		card.Memory.LastReviewedAt = &t
	}
	card.Memory.DueAt = card.Memory.DueAt.UTC()
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	return &card, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
