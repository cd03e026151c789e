package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
)

// ProgressStore persists the per-user, per-day study counters.
type ProgressStore interface {
	// GetDailyProgress returns the counters for userID on day (domain.DayLayout).
	// A day without activity yields a zero-count record, not an error.
	GetDailyProgress(ctx context.Context, userID uuid.UUID, day string) (domain.DailyProgress, error)

	// IncrementDailyProgress atomically adds learned and reviewed to the
	// counters for userID on day and returns the updated record.
	IncrementDailyProgress(
		ctx context.Context,
		userID uuid.UUID,
		day string,
		learned, reviewed int,
	) (domain.DailyProgress, error)
}

// ValidateDay checks that day is a calendar-day key in domain.DayLayout.
// The returned error wraps ErrInvalidEntity.
func ValidateDay(day string) error {
	if _, err := time.Parse(domain.DayLayout, day); err != nil {
		return NewStoreError("progress", "validate", fmt.Sprintf("invalid day %q", day),
			fmt.Errorf("%w: %w", ErrInvalidEntity, err))
	}
	return nil
}
