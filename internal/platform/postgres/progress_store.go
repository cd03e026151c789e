package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
)

// PostgresProgressStore implements store.ProgressStore using a PostgreSQL database.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a progress store over db.
// If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// GetDailyProgress implements store.ProgressStore.GetDailyProgress
func (s *PostgresProgressStore) GetDailyProgress(
	ctx context.Context,
	userID uuid.UUID,
	day string,
) (domain.DailyProgress, error) {
	progress := domain.DailyProgress{UserID: userID, Day: day}
	if err := store.ValidateDay(day); err != nil {
		return progress, err
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT learned, reviewed
		FROM daily_progress
		WHERE user_id = $1 AND day = $2::date`,
		userID, day,
	).Scan(&progress.Learned, &progress.Reviewed)
	if errors.Is(err, sql.ErrNoRows) {
		return progress, nil
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get daily progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("day", day))
		return progress, store.NewStoreError("progress", "get", "failed to get daily progress", MapError(err))
	}
	return progress, nil
}

// IncrementDailyProgress implements store.ProgressStore.IncrementDailyProgress
func (s *PostgresProgressStore) IncrementDailyProgress(
	ctx context.Context,
	userID uuid.UUID,
	day string,
	learned, reviewed int,
) (domain.DailyProgress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	progress := domain.DailyProgress{UserID: userID, Day: day}

	if err := store.ValidateDay(day); err != nil {
		return progress, err
	}
	if learned < 0 || reviewed < 0 {
		return progress, store.NewStoreError("progress", "increment", "increments must not be negative",
			store.ErrInvalidEntity)
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO daily_progress (user_id, day, learned, reviewed, updated_at)
		VALUES ($1, $2::date, $3, $4, $5)
		ON CONFLICT (user_id, day) DO UPDATE
		SET learned = daily_progress.learned + EXCLUDED.learned,
			reviewed = daily_progress.reviewed + EXCLUDED.reviewed,
			updated_at = EXCLUDED.updated_at
		RETURNING learned, reviewed`,
		userID, day, learned, reviewed, time.Now().UTC(),
	).Scan(&progress.Learned, &progress.Reviewed)
	if err != nil {
		log.Error("failed to increment daily progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("day", day))
		return progress, store.NewStoreError("progress", "increment", "failed to increment daily progress",
			MapError(err))
	}

	log.Debug("daily progress incremented",
		slog.String("user_id", userID.String()),
		slog.String("day", day),
		slog.Int("learned", progress.Learned),
		slog.Int("reviewed", progress.Reviewed))
	return progress, nil
}
