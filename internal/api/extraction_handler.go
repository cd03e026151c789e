package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/mediflash/mediflash-api/internal/task"
)

// ExtractionHandler accepts document extraction jobs and reports their status.
// Jobs are handed to the background workers through an extraction.requested event.
type ExtractionHandler struct {
	decks   store.DeckStore
	emitter events.EventEmitter
	tracker *task.Tracker
	enabled bool
	logger  *slog.Logger
}

// NewExtractionHandler creates a new ExtractionHandler. When enabled is
// false every extraction request is refused with 503.
func NewExtractionHandler(
	decks store.DeckStore,
	emitter events.EventEmitter,
	tracker *task.Tracker,
	enabled bool,
	logger *slog.Logger,
) *ExtractionHandler {
	if decks == nil || emitter == nil || tracker == nil {
		panic("decks, emitter and tracker are required for ExtractionHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for ExtractionHandler")
	}
	return &ExtractionHandler{
		decks:   decks,
		emitter: emitter,
		tracker: tracker,
		enabled: enabled,
		logger:  logger.With(slog.String("component", "extraction_handler")),
	}
}

// CreateExtraction handles POST /api/decks/{id}/extractions.
// It responds 202 with the job ID; progress is polled through GetExtraction.
func (h *ExtractionHandler) CreateExtraction(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	if !h.enabled {
		HandleAPIError(w, r, ErrExtractionDisabled, "")
		return
	}

	var req CreateExtractionRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	if _, err := loadOwnedDeck(r.Context(), h.decks, userID, deckID); err != nil {
		HandleAPIError(w, r, err, "Failed to start extraction")
		return
	}

	jobID := uuid.New()
	h.tracker.Register(jobID, task.TypeExtraction, userID, deckID)

	event, err := events.NewEvent(events.TypeExtractionRequested, task.ExtractionRequest{
		JobID:  jobID,
		UserID: userID,
		DeckID: deckID,
		Text:   req.Text,
		Focus:  req.Focus,
	})
	if err != nil {
		h.tracker.Fail(jobID, "extraction could not be started")
		HandleAPIError(w, r, fmt.Errorf("failed to create event: %w", err), "Failed to start extraction")
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		HandleAPIError(w, r, err, "Failed to start extraction")
		return
	}

	log.Info("extraction job accepted",
		slog.String("job_id", jobID.String()),
		slog.String("deck_id", deckID.String()),
		slog.Int("text_length", len(req.Text)))

	job, err := h.tracker.Get(jobID)
	status := task.StatusPending
	if err == nil {
		status = job.Status
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, ExtractionAcceptedResponse{
		JobID:  jobID,
		Status: string(status),
	})
}

// GetExtraction handles GET /api/extractions/{id}. Jobs of other users are
// reported as not found.
func (h *ExtractionHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, jobID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	job, err := h.tracker.Get(jobID)
	if err == nil && job.UserID != userID {
		err = task.ErrJobNotFound
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}
