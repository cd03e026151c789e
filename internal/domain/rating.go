package domain

import "fmt"

// Rating is the learner's answer-quality grade for a card.
type Rating int

// Rating values presented to the learner.
const (
	RatingAgain Rating = 1 // lapse
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// Ratings lists every valid rating in ascending order.
var Ratings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

// Valid reports whether r is one of the four defined ratings.
func (r Rating) Valid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

// IsLapse reports whether the rating means the learner failed to recall the card.
func (r Rating) IsLapse() bool {
	return r == RatingAgain
}

// String returns the lowercase name of the rating.
func (r Rating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ValidateRating returns ErrInvalidRating wrapped with the offending value
// when r is not a defined rating.
func ValidateRating(r Rating) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %d is outside 1..4", ErrInvalidRating, int(r))
	}
	return nil
}
