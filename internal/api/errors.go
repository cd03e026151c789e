package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/study"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/mediflash/mediflash-api/internal/task"
)

// API-level errors
var (
	// ErrUnauthorized is returned when no caller identity is attached to the request.
	ErrUnauthorized = errors.New("user ID not found in request context")

	// ErrExtractionDisabled is returned when no document generator is configured.
	ErrExtractionDisabled = errors.New("document extraction is not configured")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, study.ErrSessionNotOwned),
		errors.Is(err, study.ErrDeckNotOwned):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, study.ErrSessionNotFound),
		errors.Is(err, task.ErrJobNotFound):
		return http.StatusNotFound

	// A stale write cannot be fixed by retrying; the card changed elsewhere.
	case errors.Is(err, store.ErrStaleWrite),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, study.ErrInvalidPhase),
		errors.Is(err, study.ErrNothingToRetry):
		return http.StatusConflict

	case errors.Is(err, study.ErrPersistenceFailure),
		errors.Is(err, ErrExtractionDisabled),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	case errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, study.ErrInvalidDecision),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "User ID not found or invalid"

	case errors.Is(err, study.ErrSessionNotOwned):
		return "You do not own this study session"
	case errors.Is(err, study.ErrDeckNotOwned):
		return "You do not own this deck"

	case errors.Is(err, store.ErrDeckNotFound):
		return "Deck not found"
	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"
	case errors.Is(err, study.ErrSessionNotFound):
		return "Study session not found"
	case errors.Is(err, task.ErrJobNotFound):
		return "Extraction job not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrStaleWrite):
		return "Card was reviewed more recently elsewhere"
	case errors.Is(err, study.ErrPersistenceFailure):
		return "Rating could not be saved, retry to save it again"
	case errors.Is(err, study.ErrInvalidPhase):
		return "Action not allowed in the current session phase"
	case errors.Is(err, study.ErrNothingToRetry):
		return "Nothing to retry"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, ErrExtractionDisabled):
		return "Document extraction is not available"
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed):
		return "Extraction queue is busy, try again later"

	case errors.Is(err, domain.ErrInvalidRating):
		return "Invalid rating, expected 1 (again) to 4 (easy)"
	case errors.Is(err, study.ErrInvalidDecision):
		return "Invalid decision, expected continue, review_only or exit"
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a message naming the
// first offending field, without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), validationTagMessage(fe.Tag()))
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	}

	return "Validation error"
}

// validationTagMessage maps validation tags to user-friendly error messages
func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status code and safe message for err.
// A non-empty fallback replaces the generic message of 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
