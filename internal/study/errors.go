package study

import (
	"errors"
	"fmt"
)

// Common study errors
var (
	// ErrPersistenceFailure is returned when the deck store rejects a rated card.
	// The session does not advance; the rating can be retried with Retry or
	// replaced by rating again.
	ErrPersistenceFailure = errors.New("failed to persist rated card")

	// ErrInvalidPhase is returned when an action does not apply to the
	// session's current phase, e.g. rating before the answer was revealed.
	ErrInvalidPhase = errors.New("action not allowed in current phase")

	// ErrNothingToRetry is returned by Retry when no failed rating is pending.
	ErrNothingToRetry = errors.New("no pending rating to retry")

	// ErrInvalidDecision is returned for an unknown limit decision.
	ErrInvalidDecision = errors.New("invalid limit decision")

	// ErrSessionNotFound is returned for unknown, finished or superseded sessions.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrSessionNotOwned is returned when a user addresses another user's session.
	ErrSessionNotOwned = errors.New("study session belongs to another user")

	// ErrDeckNotOwned is returned when a user starts a session on another user's deck.
	ErrDeckNotOwned = errors.New("deck belongs to another user")
)

// SessionError wraps errors from session operations with additional context.
type SessionError struct {
	// Operation is the operation that failed (e.g., "rate", "retry", "start")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for SessionError.
func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// newPersistenceError wraps a store failure so that it matches both
// ErrPersistenceFailure and the original store error.
func newPersistenceError(operation string, err error) *SessionError {
	return &SessionError{
		Operation: operation,
		Message:   "card was not saved",
		Err:       fmt.Errorf("%w: %w", ErrPersistenceFailure, err),
	}
}

func newPhaseError(operation string, phase Phase) *SessionError {
	return &SessionError{
		Operation: operation,
		Message:   fmt.Sprintf("session is in phase %s", phase),
		Err:       ErrInvalidPhase,
	}
}
