package srs

import (
	"errors"
	"time"

	"github.com/mediflash/mediflash-api/internal/domain"
)

// Common errors
var (
	ErrNilCard = errors.New("card cannot be nil")
)

// Service defines the interface for the rating processor
type Service interface {
	// ComputeNextState returns the memory state that follows a rating.
	// It is a pure function of its inputs. An invalid rating returns an
	// error wrapping domain.ErrInvalidRating and a zero state.
	ComputeNextState(
		state domain.MemoryState,
		rating domain.Rating,
		now time.Time,
	) (domain.MemoryState, error)

	// ApplyRating returns a copy of card carrying the next memory state.
	// The input card is left untouched, including on error.
	ApplyRating(card *domain.Card, rating domain.Rating, now time.Time) (*domain.Card, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters.
// A nil params falls back to the defaults.
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// ComputeNextState implements Service.ComputeNextState
func (s *defaultService) ComputeNextState(
	state domain.MemoryState,
	rating domain.Rating,
	now time.Time,
) (domain.MemoryState, error) {
	if err := domain.ValidateRating(rating); err != nil {
		return domain.MemoryState{}, err
	}

	return calculateNextState(state, rating, now, s.params), nil
}

// ApplyRating implements Service.ApplyRating
func (s *defaultService) ApplyRating(
	card *domain.Card,
	rating domain.Rating,
	now time.Time,
) (*domain.Card, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	next, err := s.ComputeNextState(card.Memory, rating, now)
	if err != nil {
		return nil, err
	}

	updated := card.Clone()
	updated.Memory = next
	updated.UpdatedAt = now
	return updated, nil
}
