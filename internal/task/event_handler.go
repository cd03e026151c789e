package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/generation"
)

// ExtractionEventHandler implements the events.EventHandler interface.
// It turns extraction.requested events into ExtractionTasks and enqueues them.
type ExtractionEventHandler struct {
	generator generation.Generator
	cards     CardAdder
	queue     Sink
	tracker   *Tracker
	logger    *slog.Logger
}

// Ensure ExtractionEventHandler implements events.EventHandler
var _ events.EventHandler = (*ExtractionEventHandler)(nil)

// NewExtractionEventHandler creates a handler that submits extraction tasks to queue.
func NewExtractionEventHandler(
	generator generation.Generator,
	cards CardAdder,
	queue Sink,
	tracker *Tracker,
	logger *slog.Logger,
) *ExtractionEventHandler {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionEventHandler{
		generator: generator,
		cards:     cards,
		queue:     queue,
		tracker:   tracker,
		logger:    logger.With(slog.String("component", "extraction_event_handler")),
	}
}

// HandleEvent creates and enqueues an extraction task. Other event types are ignored.
// When the task cannot be queued the job is marked failed.
func (h *ExtractionEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeExtractionRequested {
		return nil
	}

	var req ExtractionRequest
	if err := event.UnmarshalPayload(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := NewExtractionTask(req, h.generator, h.cards, h.tracker, h.logger)
	if err != nil {
		h.failJob(req, "extraction could not be started")
		h.logger.ErrorContext(ctx, "failed to create task", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.queue.Enqueue(task); err != nil {
		h.failJob(req, "extraction queue is unavailable, try again later")
		h.logger.ErrorContext(ctx, "failed to enqueue task",
			"error", err,
			"task_id", task.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	h.logger.InfoContext(ctx, "extraction task enqueued",
		"task_id", task.ID(),
		"deck_id", req.DeckID,
		"event_id", event.ID)
	return nil
}

func (h *ExtractionEventHandler) failJob(req ExtractionRequest, message string) {
	if h.tracker != nil {
		h.tracker.Fail(req.JobID, message)
	}
}
