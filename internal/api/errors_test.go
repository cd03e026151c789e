package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/mediflash/mediflash-api/internal/study"
	"github.com/mediflash/mediflash-api/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	persistence := fmt.Errorf("%w: %w", study.ErrPersistenceFailure, store.ErrInternal)
	stale := fmt.Errorf("%w: %w", study.ErrPersistenceFailure, store.ErrStaleWrite)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"session of another user", study.ErrSessionNotOwned, http.StatusForbidden},
		{"deck of another user", study.ErrDeckNotOwned, http.StatusForbidden},
		{"deck not found", fmt.Errorf("load: %w", store.ErrDeckNotFound), http.StatusNotFound},
		{"session not found", study.ErrSessionNotFound, http.StatusNotFound},
		{"job not found", task.ErrJobNotFound, http.StatusNotFound},
		{"phase violation", study.ErrInvalidPhase, http.StatusConflict},
		{"stale write", stale, http.StatusConflict},
		{"persistence failure", persistence, http.StatusServiceUnavailable},
		{"queue full", task.ErrQueueFull, http.StatusServiceUnavailable},
		{"extraction disabled", ErrExtractionDisabled, http.StatusServiceUnavailable},
		{"invalid rating", domain.ValidateRating(9), http.StatusBadRequest},
		{"invalid decision", study.ErrInvalidDecision, http.StatusBadRequest},
		{"validation", domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID), http.StatusBadRequest},
		{"empty body", shared.ErrEmptyBody, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "Deck not found", GetSafeErrorMessage(store.ErrDeckNotFound))
	assert.Equal(t, "Card not found", GetSafeErrorMessage(store.ErrCardNotFound))
	assert.Equal(t, "Invalid id: has invalid format",
		GetSafeErrorMessage(domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID)))

	// Internal details never reach the client.
	leaky := fmt.Errorf("query failed: %w", errors.New("pq: password authentication failed for user admin"))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(leaky))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := shared.ValidateRequest(CreateDeckRequest{})
	assert.Equal(t, "Invalid name: required field", SanitizeValidationError(err))

	err = shared.ValidateRequest(CreateDeckRequest{Name: "ok", Source: "elsewhere"})
	assert.Equal(t, "Invalid source: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("odd")))
}
