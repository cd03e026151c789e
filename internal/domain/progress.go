package domain

import (
	"time"

	"github.com/google/uuid"
)

// DayLayout is the calendar-day key format used for daily progress records.
const DayLayout = "2006-01-02"

// DailyProgress is the user-scoped count of cards learned (first rating of a
// new card) and reviewed on one calendar day.
type DailyProgress struct {
	UserID   uuid.UUID `json:"user_id"`
	Day      string    `json:"day"`
	Learned  int       `json:"learned"`
	Reviewed int       `json:"reviewed"`
}

// DayOf returns the progress day key for t in t's location.
func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}

// RemainingNew returns how many new cards the user may still start today
// under the given daily cap. The result is never negative.
func (p DailyProgress) RemainingNew(dailyCap int) int {
	remaining := dailyCap - p.Learned
	if remaining < 0 {
		return 0
	}
	return remaining
}
