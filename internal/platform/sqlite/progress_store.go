package sqlite

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

// ProgressStore implements store.ProgressStore on a SQLite database.
type ProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewProgressStore creates a progress store over db.
// If logger is nil, a default logger will be used.
func NewProgressStore(db store.DBTX, logger *slog.Logger) *ProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_progress_store")),
	}
}

var _ store.ProgressStore = (*ProgressStore)(nil)

// GetDailyProgress implements store.ProgressStore.GetDailyProgress
func (s *ProgressStore) GetDailyProgress(
	ctx context.Context,
	userID uuid.UUID,
	day string,
) (domain.DailyProgress, error) {
	progress := domain.DailyProgress{UserID: userID, Day: day}
	if err := store.ValidateDay(day); err != nil {
		return progress, err
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT learned, reviewed FROM daily_progress WHERE user_id = ? AND day = ?`,
		userID.String(), day,
	).Scan(&progress.Learned, &progress.Reviewed)
	if errors.Is(err, sql.ErrNoRows) {
		return progress, nil
	}
	if err != nil {
		return progress, store.NewStoreError("progress", "get", "failed to get daily progress", MapError(err))
	}
	return progress, nil
}

// IncrementDailyProgress implements store.ProgressStore.IncrementDailyProgress
func (s *ProgressStore) IncrementDailyProgress(
	ctx context.Context,
	userID uuid.UUID,
	day string,
	learned, reviewed int,
) (domain.DailyProgress, error) {
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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE
		SET learned = learned + excluded.learned,
			reviewed = reviewed + excluded.reviewed,
			updated_at = excluded.updated_at
		RETURNING learned, reviewed`,
		userID.String(), day, learned, reviewed, formatTime(time.Now()),
	).Scan(&progress.Learned, &progress.Reviewed)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment daily progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("day", day))
		return progress, store.NewStoreError("progress", "increment", "failed to increment daily progress",
			MapError(err))
	}
	return progress, nil
}
