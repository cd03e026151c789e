package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/platform/migrate"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/mediflash/mediflash-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openIntegrationTx connects to the integration database and applies the
// migrations. Tests run inside a transaction that is rolled back afterwards.
func openIntegrationTx(t *testing.T) *sql.Tx {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, testdb.PostgresURL(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate.Up(ctx, db, Migrations()))
	return testdb.BeginTx(t, db)
}

func TestIntegrationDeckStoreRoundTrip(t *testing.T) {
	tx := openIntegrationTx(t)
	ctx := context.Background()
	decks := NewPostgresDeckStore(tx, nil)
	now := time.Now().UTC().Truncate(time.Microsecond)

	deck, err := domain.NewDeck(uuid.New(), "Pharmacology", domain.DeckSourceManual)
	require.NoError(t, err)
	require.NoError(t, decks.CreateDeck(ctx, deck))

	added, err := decks.AddCards(ctx, deck.ID, []domain.CardDraft{
		{Question: "Antidote for heparin?", Answer: "Protamine sulfate", Tags: []string{"tox"}},
		{Question: "Antidote for warfarin?", Answer: "Vitamin K"},
	}, now)
	require.NoError(t, err)
	require.Len(t, added, 2)

	more, err := decks.AddCards(ctx, deck.ID, []domain.CardDraft{{Question: "q3", Answer: "a3"}}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, more[0].Position)

	card := added[0].Clone()
	card.Memory.IsNew = false
	card.Memory.Repetitions = 1
	card.Memory.IntervalDays = 1
	card.Memory.LastReviewedAt = &now
	card.Memory.DueAt = now.AddDate(0, 0, 1)
	card.Memory.History = []domain.ReviewEntry{{Rating: domain.RatingGood, Time: now}}
	require.NoError(t, decks.SaveCard(ctx, card))

	stale := added[0].Clone()
	earlier := now.Add(-time.Minute)
	stale.Memory.IsNew = false
	stale.Memory.LastReviewedAt = &earlier
	stale.Memory.History = []domain.ReviewEntry{{Rating: domain.RatingAgain, Time: earlier}}
	assert.ErrorIs(t, decks.SaveCard(ctx, stale), store.ErrStaleWrite)

	cards, err := decks.GetCards(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, 1, cards[0].Memory.IntervalDays)
	assert.Equal(t, []string{"tox"}, cards[0].Tags)
	require.NotNil(t, cards[0].Memory.LastReviewedAt)
	assert.True(t, cards[0].Memory.LastReviewedAt.Equal(now))

	require.NoError(t, decks.DeleteDeck(ctx, deck.ID))
	_, err = decks.GetCards(ctx, deck.ID)
	assert.ErrorIs(t, err, store.ErrDeckNotFound)
}

func TestIntegrationProgressStore(t *testing.T) {
	tx := openIntegrationTx(t)
	ctx := context.Background()
	progress := NewPostgresProgressStore(tx, nil)
	userID := uuid.New()

	_, err := progress.IncrementDailyProgress(ctx, userID, "2024-03-01", 1, 0)
	require.NoError(t, err)
	p, err := progress.IncrementDailyProgress(ctx, userID, "2024-03-01", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Learned)
	assert.Equal(t, 2, p.Reviewed)

	other, err := progress.GetDailyProgress(ctx, userID, "2024-03-02")
	require.NoError(t, err)
	assert.Zero(t, other.Learned)
}
