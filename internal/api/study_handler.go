package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/study"
)

// StudySessions is the study session API consumed by StudyHandler.
// *study.Manager satisfies it.
type StudySessions interface {
	Start(ctx context.Context, userID, deckID uuid.UUID) (study.View, error)
	Get(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error)
	Reveal(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error)
	Rate(ctx context.Context, userID, sessionID uuid.UUID, rating domain.Rating) (study.View, error)
	Retry(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error)
	Decide(ctx context.Context, userID, sessionID uuid.UUID, decision study.Decision) (study.View, error)
	Exit(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error)
}

var _ StudySessions = (*study.Manager)(nil)

// StudyHandler handles study session HTTP requests. Every successful
// response body is the session's current study.View.
type StudyHandler struct {
	sessions StudySessions
	logger   *slog.Logger
}

// NewStudyHandler creates a new StudyHandler.
func NewStudyHandler(sessions StudySessions, logger *slog.Logger) *StudyHandler {
	if sessions == nil {
		panic("sessions cannot be nil for StudyHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for StudyHandler")
	}
	return &StudyHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "study_handler")),
	}
}

// StartSession handles POST /api/decks/{id}/sessions.
func (h *StudyHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	view, err := h.sessions.Start(r.Context(), userID, deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start study session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, view)
}

// GetSession handles GET /api/sessions/{id}.
func (h *StudyHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "", func(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error) {
		return h.sessions.Get(ctx, userID, sessionID)
	})
}

// Reveal handles POST /api/sessions/{id}/reveal.
func (h *StudyHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "Failed to reveal answer", h.sessions.Reveal)
}

// Rate handles POST /api/sessions/{id}/rate.
func (h *StudyHandler) Rate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RateRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	h.sessionAction(w, r, "Failed to rate card", func(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error) {
		return h.sessions.Rate(ctx, userID, sessionID, domain.Rating(req.Rating))
	})
}

// Retry handles POST /api/sessions/{id}/retry.
func (h *StudyHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "Failed to save rating", h.sessions.Retry)
}

// Decide handles POST /api/sessions/{id}/decision.
func (h *StudyHandler) Decide(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req DecisionRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	decision, err := study.ParseDecision(req.Decision)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.sessionAction(w, r, "Failed to apply decision", func(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error) {
		return h.sessions.Decide(ctx, userID, sessionID, decision)
	})
}

// Exit handles POST /api/sessions/{id}/exit.
func (h *StudyHandler) Exit(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "Failed to exit session", h.sessions.Exit)
}

// sessionAction resolves the caller and session ID, runs op and writes its view.
func (h *StudyHandler) sessionAction(
	w http.ResponseWriter,
	r *http.Request,
	fallback string,
	op func(ctx context.Context, userID, sessionID uuid.UUID) (study.View, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, sessionID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	view, err := op(r.Context(), userID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, fallback)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}
