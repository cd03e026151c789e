package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
)

// DeckHandler handles deck and card HTTP requests.
type DeckHandler struct {
	decks  store.DeckStore
	now    func() time.Time
	logger *slog.Logger
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(decks store.DeckStore, logger *slog.Logger) *DeckHandler {
	if decks == nil {
		panic("decks cannot be nil for DeckHandler")
	}
	if logger == nil {
		panic("logger cannot be nil for DeckHandler")
	}
	return &DeckHandler{
		decks:  decks,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "deck_handler")),
	}
}

// CreateDeck handles POST /api/decks.
func (h *DeckHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateDeckRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	deck, err := domain.NewDeck(userID, req.Name, domain.DeckSource(req.Source))
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("deck", err.Error(), domain.ErrValidation), "")
		return
	}

	if err := h.decks.CreateDeck(r.Context(), deck); err != nil {
		HandleAPIError(w, r, err, "Failed to create deck")
		return
	}

	log.Info("deck created", slog.String("deck_id", deck.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, deckToResponse(deck))
}

// ListDecks handles GET /api/decks.
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, log)
	if !ok {
		return
	}

	decks, err := h.decks.ListDecks(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list decks")
		return
	}

	resp := make([]DeckResponse, 0, len(decks))
	for _, d := range decks {
		resp = append(resp, deckToResponse(d))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{"decks": resp})
}

// GetDeck handles GET /api/decks/{id}.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	deck, err := loadOwnedDeck(r.Context(), h.decks, userID, deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get deck")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, deckToResponse(deck))
}

// DeleteDeck handles DELETE /api/decks/{id}.
func (h *DeckHandler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if _, err := loadOwnedDeck(r.Context(), h.decks, userID, deckID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete deck")
		return
	}
	if err := h.decks.DeleteDeck(r.Context(), deckID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete deck")
		return
	}

	log.Info("deck deleted", slog.String("deck_id", deckID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// ListCards handles GET /api/decks/{id}/cards.
func (h *DeckHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if _, err := loadOwnedDeck(r.Context(), h.decks, userID, deckID); err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}

	cards, err := h.decks.GetCards(r.Context(), deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cardsToResponse(cards))
}

// AddCards handles POST /api/decks/{id}/cards. The cards are appended to the
// end of the deck as new, never-rated cards.
func (h *DeckHandler) AddCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, deckID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req AddCardsRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	if _, err := loadOwnedDeck(r.Context(), h.decks, userID, deckID); err != nil {
		HandleAPIError(w, r, err, "Failed to add cards")
		return
	}

	cards, err := h.decks.AddCards(r.Context(), deckID, draftsFromRequest(req), h.now())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add cards")
		return
	}

	log.Info("cards added",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(cards)))
	shared.RespondWithJSON(w, r, http.StatusCreated, cardsToResponse(cards))
}
