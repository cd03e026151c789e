package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every backend. Backends wrap driver errors in
// these so that callers can branch with errors.Is without knowing the driver.
var (
	// ErrNotFound is the parent of the entity-specific not-found errors.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate means a unique key already exists.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity means the backend rejected the data, e.g. a card
	// draft failing validation or a violated constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed means an update was refused.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed means a transaction could not begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInternal wraps unexpected backend failures. Its details must not
	// reach API clients.
	ErrInternal = errors.New("internal store error")

	// ErrStaleWrite is returned by SaveCard when the stored card was reviewed
	// more recently than the state being written. The newer state is kept.
	ErrStaleWrite = fmt.Errorf("%w: card was reviewed more recently", ErrUpdateFailed)

	ErrDeckNotFound = fmt.Errorf("%w: deck", ErrNotFound)
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)
)

// StoreError adds the entity and operation to a backend failure.
type StoreError struct {
	Entity    string // "deck", "card", "progress"
	Operation string // "create", "save", ...
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
