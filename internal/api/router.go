package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/mediflash/mediflash-api/internal/api/middleware"
)

// RequestTimeout bounds the handling of a single request.
const RequestTimeout = 30 * time.Second

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Decks       *DeckHandler
	Extractions *ExtractionHandler
	Study       *StudyHandler
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(apiMiddleware.NewTraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiMiddleware.RequireUserID)

		r.Route("/decks", func(r chi.Router) {
			r.Post("/", h.Decks.CreateDeck)
			r.Get("/", h.Decks.ListDecks)
			r.Get("/{id}", h.Decks.GetDeck)
			r.Delete("/{id}", h.Decks.DeleteDeck)
			r.Get("/{id}/cards", h.Decks.ListCards)
			r.Post("/{id}/cards", h.Decks.AddCards)
			r.Post("/{id}/extractions", h.Extractions.CreateExtraction)
			r.Post("/{id}/sessions", h.Study.StartSession)
		})

		r.Get("/extractions/{id}", h.Extractions.GetExtraction)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.Study.GetSession)
			r.Post("/reveal", h.Study.Reveal)
			r.Post("/rate", h.Study.Rate)
			r.Post("/retry", h.Study.Retry)
			r.Post("/decision", h.Study.Decide)
			r.Post("/exit", h.Study.Exit)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
