package study

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
)

// ProgressRecorder keeps the per-user daily counters current by consuming
// events.TypeCardRated. A card rated while new counts as learned; any other
// rated card counts as reviewed.
type ProgressRecorder struct {
	progress store.ProgressStore
	logger   *slog.Logger
}

var _ events.EventHandler = (*ProgressRecorder)(nil)

// NewProgressRecorder creates a ProgressRecorder writing to progress.
func NewProgressRecorder(progress store.ProgressStore, logger *slog.Logger) *ProgressRecorder {
	if progress == nil {
		panic("progress cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressRecorder{
		progress: progress,
		logger:   logger.With(slog.String("component", "progress_recorder")),
	}
}

// HandleEvent implements events.EventHandler. Other event types are ignored.
func (r *ProgressRecorder) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeCardRated {
		return nil
	}

	var payload CardRatedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	learned, reviewed := 0, 1
	if payload.WasNew {
		learned, reviewed = 1, 0
	}

	progress, err := r.progress.IncrementDailyProgress(ctx, payload.UserID, payload.Day, learned, reviewed)
	if err != nil {
		return fmt.Errorf("failed to record daily progress: %w", err)
	}

	logger.FromContextOrDefault(ctx, r.logger).Debug("daily progress updated",
		slog.String("user_id", payload.UserID.String()),
		slog.String("day", payload.Day),
		slog.Int("learned", progress.Learned),
		slog.Int("reviewed", progress.Reviewed))
	return nil
}
