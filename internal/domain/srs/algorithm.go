package srs

import (
	"math"
	"time"

	"github.com/mediflash/mediflash-api/internal/domain"
)

// calculateNewEase determines the new ease factor for a rating.
//
// Again and Hard lower the ease, Good leaves it unchanged and Easy raises it,
// using the adjustments from params. The result never drops below params.MinEase.
func calculateNewEase(currentEase float64, rating domain.Rating, params *Params) float64 {
	newEase := currentEase + params.EaseAdjustment[rating]

	if newEase < params.MinEase {
		newEase = params.MinEase
	}

	// Keep two decimals so repeated adjustments do not accumulate float noise
	return math.Round(newEase*100) / 100
}

// calculateNewInterval determines the interval in days after a successful
// (non-lapse) rating.
//
//   - repetitions == 1: params.FirstIntervalDays
//   - repetitions == 2: params.SecondIntervalDays
//   - repetitions >= 3: round(previousInterval * ease)
//
// repetitions is the count after this rating has been applied. The result is
// at least one day and at most params.MaxIntervalDays.
func calculateNewInterval(repetitions, previousInterval int, ease float64, params *Params) int {
	var interval int
	switch repetitions {
	case 1:
		interval = params.FirstIntervalDays
	case 2:
		interval = params.SecondIntervalDays
	default:
		interval = int(math.Round(float64(previousInterval) * ease))
	}

	if interval < 1 {
		interval = 1
	}
	if params.MaxIntervalDays > 0 && interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}
	return interval
}

// calculateNextState returns the memory state that follows state after a rating.
//
// The input is never modified; history is copied before the new entry is
// appended. The rating must already be validated by the caller.
func calculateNextState(
	state domain.MemoryState,
	rating domain.Rating,
	now time.Time,
	params *Params,
) domain.MemoryState {
	next := state.Clone()

	next.History = append(next.History, domain.ReviewEntry{Rating: rating, Time: now})
	next.Ease = calculateNewEase(state.Ease, rating, params)

	if rating.IsLapse() {
		next.Repetitions = 0
		next.IntervalDays = params.LapseIntervalDays
	} else {
		next.Repetitions = state.Repetitions + 1
		next.IntervalDays = calculateNewInterval(next.Repetitions, state.IntervalDays, next.Ease, params)
	}

	reviewedAt := now
	next.IsNew = false
	next.LastReviewedAt = &reviewedAt
	next.DueAt = now.AddDate(0, 0, next.IntervalDays)

	return next
}
