package srs

import (
	"github.com/mediflash/mediflash-api/internal/domain"
)

// DefaultMaxIntervalDays caps interval growth at roughly one hundred years.
const DefaultMaxIntervalDays = 36500

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Core limits
	MinEase         float64
	MaxIntervalDays int

	// Ease adjustment applied for each rating
	EaseAdjustment map[domain.Rating]float64

	// Fixed intervals for the early repetitions and for lapses
	FirstIntervalDays  int
	SecondIntervalDays int
	LapseIntervalDays  int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	MinEase         float64
	MaxIntervalDays int

	AgainEaseAdjustment float64
	HardEaseAdjustment  float64
	EasyEaseAdjustment  float64

	FirstIntervalDays  int
	SecondIntervalDays int
	LapseIntervalDays  int
}

// NewDefaultParams creates a new Params instance with the conventional SM-2 constants
func NewDefaultParams() *Params {
	return &Params{
		MinEase:         domain.MinEase,
		MaxIntervalDays: DefaultMaxIntervalDays,

		EaseAdjustment: map[domain.Rating]float64{
			domain.RatingAgain: -0.20,
			domain.RatingHard:  -0.15,
			domain.RatingGood:  0.0,
			domain.RatingEasy:  0.15,
		},

		FirstIntervalDays:  1,
		SecondIntervalDays: 6,
		LapseIntervalDays:  1,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// The ease floor can be raised but never lowered below the domain minimum
	if config.MinEase > domain.MinEase {
		params.MinEase = config.MinEase
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	if config.AgainEaseAdjustment != 0 {
		params.EaseAdjustment[domain.RatingAgain] = config.AgainEaseAdjustment
	}
	if config.HardEaseAdjustment != 0 {
		params.EaseAdjustment[domain.RatingHard] = config.HardEaseAdjustment
	}
	if config.EasyEaseAdjustment != 0 {
		params.EaseAdjustment[domain.RatingEasy] = config.EasyEaseAdjustment
	}

	if config.FirstIntervalDays > 0 {
		params.FirstIntervalDays = config.FirstIntervalDays
	}
	if config.SecondIntervalDays > 0 {
		params.SecondIntervalDays = config.SecondIntervalDays
	}
	if config.LapseIntervalDays > 0 {
		params.LapseIntervalDays = config.LapseIntervalDays
	}

	return params
}
