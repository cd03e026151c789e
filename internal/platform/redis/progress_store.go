// Package redis provides a Redis-backed store.ProgressStore. Daily counters
// live in one hash per user and day and expire after a retention window, so
// the store never needs cleanup.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/config"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
)

const (
	keyPrefix        = "mediflash:progress"
	fieldLearned     = "learned"
	fieldReviewed    = "reviewed"
	DefaultRetention = 8 * 24 * time.Hour
)

// Connect creates a client for cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// ProgressStore implements store.ProgressStore on Redis hashes.
type ProgressStore struct {
	client    goredis.UniversalClient
	retention time.Duration
	logger    *slog.Logger
}

// Option configures a ProgressStore.
type Option func(*ProgressStore)

// WithRetention sets how long a day's counters are kept after their last update.
func WithRetention(d time.Duration) Option {
	return func(s *ProgressStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewProgressStore creates a progress store using client.
// If logger is nil, a default logger will be used.
func NewProgressStore(client goredis.UniversalClient, logger *slog.Logger, opts ...Option) *ProgressStore {
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &ProgressStore{
		client:    client,
		retention: DefaultRetention,
		logger:    logger.With(slog.String("component", "redis_progress_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
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

	fields, err := s.client.HGetAll(ctx, progressKey(userID, day)).Result()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read daily progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("day", day))
		return progress, store.NewStoreError("progress", "get", "failed to read daily progress",
			fmt.Errorf("%w: %v", store.ErrInternal, err))
	}

	if progress.Learned, err = parseCounter(fields, fieldLearned); err != nil {
		return progress, store.NewStoreError("progress", "get", "corrupt counter", err)
	}
	if progress.Reviewed, err = parseCounter(fields, fieldReviewed); err != nil {
		return progress, store.NewStoreError("progress", "get", "corrupt counter", err)
	}
	return progress, nil
}

// IncrementDailyProgress implements store.ProgressStore.IncrementDailyProgress
// Both counters and the expiry are updated in a single MULTI/EXEC block.
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

	key := progressKey(userID, day)
	var learnedCmd, reviewedCmd *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		learnedCmd = pipe.HIncrBy(ctx, key, fieldLearned, int64(learned))
		reviewedCmd = pipe.HIncrBy(ctx, key, fieldReviewed, int64(reviewed))
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment daily progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("day", day))
		return progress, store.NewStoreError("progress", "increment", "failed to increment daily progress",
			fmt.Errorf("%w: %v", store.ErrInternal, err))
	}

	progress.Learned = int(learnedCmd.Val())
	progress.Reviewed = int(reviewedCmd.Val())
	return progress, nil
}

func progressKey(userID uuid.UUID, day string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, day)
}

func parseCounter(fields map[string]string, name string) (int, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s: %v", store.ErrInternal, name, err)
	}
	return n, nil
}
