package sqlite

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
	sqlite3 "modernc.org/sqlite/lib"
)

const cardColumns = `id, deck_id, position, kind, question, answer, tags, media, chapter,
	is_new, ease, interval_days, repetitions, due_at, last_reviewed_at, history,
	created_at, updated_at`

// DeckStore implements store.DeckStore on a SQLite database.
type DeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewDeckStore creates a deck store over db (a *sql.DB or *sql.Tx).
// If logger is nil, a default logger will be used.
func NewDeckStore(db store.DBTX, logger *slog.Logger) *DeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_deck_store")),
	}
}

var _ store.DeckStore = (*DeckStore)(nil)

// CreateDeck implements store.DeckStore.CreateDeck
func (s *DeckStore) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		return store.NewStoreError("deck", "create", "invalid deck",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decks (id, user_id, name, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		deck.ID.String(), deck.UserID.String(), deck.Name, string(deck.Source), formatTime(deck.CreatedAt))
	if err != nil {
		log.Error("failed to create deck",
			slog.String("error", err.Error()),
			slog.String("deck_id", deck.ID.String()))
		return store.NewStoreError("deck", "create", "failed to create deck", MapError(err))
	}

	log.Info("deck created", slog.String("deck_id", deck.ID.String()))
	return nil
}

// GetDeck implements store.DeckStore.GetDeck
func (s *DeckStore) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, source, created_at FROM decks WHERE id = ?`, id.String())
	deck, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrDeckNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("deck", "get", "failed to get deck", MapError(err))
	}
	return deck, nil
}

// ListDecks implements store.DeckStore.ListDecks
func (s *DeckStore) ListDecks(ctx context.Context, userID uuid.UUID) ([]*domain.Deck, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, source, created_at
		FROM decks
		WHERE user_id = ?
		ORDER BY created_at, id`, userID.String())
	if err != nil {
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
func (s *DeckStore) GetCards(ctx context.Context, deckID uuid.UUID) ([]*domain.Card, error) {
	exists, err := deckExists(ctx, s.db, deckID)
	if err != nil {
		return nil, store.NewStoreError("card", "list", "failed to check deck", MapError(err))
	}
	if !exists {
		return nil, store.ErrDeckNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? ORDER BY position`, deckID.String())
	if err != nil {
		return nil, store.NewStoreError("card", "list", "failed to query cards", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to scan card",
				slog.String("error", err.Error()),
				slog.String("deck_id", deckID.String()))
			return nil, store.NewStoreError("card", "list", "failed to scan card", MapError(err))
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "failed to iterate cards", MapError(err))
	}
	return cards, nil
}

// GetCard implements store.DeckStore.GetCard
func (s *DeckStore) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id.String())
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("card", "get", "failed to get card", MapError(err))
	}
	return card, nil
}

// AddCards implements store.DeckStore.AddCards
func (s *DeckStore) AddCards(
	ctx context.Context,
	deckID uuid.UUID,
	drafts []domain.CardDraft,
	now time.Time,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now = now.UTC()

	var added []*domain.Card
	err := store.InTx(ctx, s.db, func(ctx context.Context, tx store.DBTX) error {
		exists, err := deckExists(ctx, tx, deckID)
		if err != nil {
			return store.NewStoreError("card", "add", "failed to check deck", MapError(err))
		}
		if !exists {
			return store.ErrDeckNotFound
		}

		var next int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM cards WHERE deck_id = ?`, deckID.String()).Scan(&next)
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
				if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
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
			slog.String("deck_id", deckID.String()))
		return nil, err
	}

	log.Info("cards added",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(added)))
	return added, nil
}

// SaveCard implements store.DeckStore.SaveCard
func (s *DeckStore) SaveCard(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))

	if err := card.Validate(); err != nil {
		return store.NewStoreError("card", "save", "invalid card",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	history, err := json.Marshal(card.Memory.History)
	if err != nil {
		return store.NewStoreError("card", "save", "failed to encode history", err)
	}

	var reviewedAt *string
	if card.Memory.LastReviewedAt != nil {
		v := formatTime(*card.Memory.LastReviewedAt)
		reviewedAt = &v
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cards
		SET is_new = ?, ease = ?, interval_days = ?, repetitions = ?,
			due_at = ?, last_reviewed_at = ?, history = ?, updated_at = ?
		WHERE id = ? AND deck_id = ?
			AND (last_reviewed_at IS NULL OR (? IS NOT NULL AND last_reviewed_at <= ?))`,
		card.Memory.IsNew,
		card.Memory.Ease,
		card.Memory.IntervalDays,
		card.Memory.Repetitions,
		formatTime(card.Memory.DueAt),
		reviewedAt,
		string(history),
		formatTime(time.Now()),
		card.ID.String(),
		card.DeckID.String(),
		reviewedAt,
		reviewedAt,
	)
	if err != nil {
		log.Error("failed to save card", slog.String("error", err.Error()))
		return store.NewStoreError("card", "save", "failed to save card", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("card", "save", "failed to read result", MapError(err))
	}
	if affected > 0 {
		return nil
	}

	err = s.unsavedCardError(ctx, card)
	log.Warn("card not saved", slog.String("reason", err.Error()))
	return err
}

// DeleteDeck implements store.DeckStore.DeleteDeck
func (s *DeckStore) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id.String())
	if err != nil {
		return store.NewStoreError("deck", "delete", "failed to delete deck", MapError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("deck", "delete", "failed to read result", MapError(err))
	}
	if affected == 0 {
		return store.ErrDeckNotFound
	}
	return nil
}

func (s *DeckStore) unsavedCardError(ctx context.Context, card *domain.Card) error {
	exists, err := deckExists(ctx, s.db, card.DeckID)
	if err != nil {
		return store.NewStoreError("card", "save", "failed to check deck", MapError(err))
	}
	if !exists {
		return store.ErrDeckNotFound
	}

	var found bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE id = ? AND deck_id = ?)`,
		card.ID.String(), card.DeckID.String()).Scan(&found)
	if err != nil {
		return store.NewStoreError("card", "save", "failed to check card", MapError(err))
	}
	if !found {
		return store.ErrCardNotFound
	}
	return store.ErrStaleWrite
}

func deckExists(ctx context.Context, db store.DBTX, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM decks WHERE id = ?)`, id.String()).Scan(&exists)
	return exists, err
}

func insertCard(ctx context.Context, db store.DBTX, card *domain.Card) error {
	tags := card.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	history, err := json.Marshal(card.Memory.History)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID.String(),
		card.DeckID.String(),
		card.Position,
		string(card.Kind),
		card.Question,
		card.Answer,
		string(tagsJSON),
		card.Media,
		card.Chapter,
		card.Memory.IsNew,
		card.Memory.Ease,
		card.Memory.IntervalDays,
		card.Memory.Repetitions,
		formatTime(card.Memory.DueAt),
		nil,
		string(history),
		formatTime(card.CreatedAt),
		formatTime(card.UpdatedAt),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*domain.Deck, error) {
	var (
		deck      domain.Deck
		source    string
		createdAt string
	)
	if err := row.Scan(&deck.ID, &deck.UserID, &deck.Name, &source, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	deck.Source = domain.DeckSource(source)
	deck.CreatedAt = t
	return &deck, nil
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card                        domain.Card
		kind, tags, history         string
		dueAt, createdAt, updatedAt string
		reviewedAt                  sql.NullString
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
		&dueAt,
		&reviewedAt,
		&history,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.Kind = domain.CardKind(kind)
	if err := json.Unmarshal([]byte(tags), &card.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(card.Tags) == 0 {
		card.Tags = nil
	}
	if err := json.Unmarshal([]byte(history), &card.Memory.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if card.Memory.History == nil {
		card.Memory.History = []domain.ReviewEntry{}
	}

	if card.Memory.DueAt, err = parseTime(dueAt); err != nil {
		return nil, err
	}
	if card.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if card.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		t, err := parseTime(reviewedAt.String)
		if err != nil {
			return nil, err
		}
		card.Memory.LastReviewedAt = &t
	}
	return &card, nil
}
