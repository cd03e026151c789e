package task

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when no job with the requested ID is tracked.
var ErrJobNotFound = errors.New("job not found")

// Job is the externally visible record of a background task.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	DeckID     uuid.UUID `json:"deck_id"`
	Status     Status    `json:"status"`
	CardsAdded int       `json:"cards_added"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tracker keeps job records in memory. Records do not survive a restart.
// It is safe for concurrent use.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	now  func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[uuid.UUID]*Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Register records a new pending job and returns a copy of it.
func (t *Tracker) Register(id uuid.UUID, taskType string, userID, deckID uuid.UUID) Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	job := &Job{
		ID:        id,
		Type:      taskType,
		UserID:    userID,
		DeckID:    deckID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.jobs[id] = job
	return *job
}

// Get returns a copy of the job with the given ID.
func (t *Tracker) Get(id uuid.UUID) (Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// SetStatus moves the job to status. A terminal job is never changed.
func (t *Tracker) SetStatus(id uuid.UUID, status Status) {
	t.update(id, func(j *Job) { j.Status = status })
}

// Complete marks the job completed with the number of cards it added.
func (t *Tracker) Complete(id uuid.UUID, cardsAdded int) {
	t.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.CardsAdded = cardsAdded
	})
}

// Fail marks the job failed with a client-safe message.
func (t *Tracker) Fail(id uuid.UUID, message string) {
	t.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = message
	})
}

// Prune forgets finished jobs last updated before cutoff and returns how many were removed.
func (t *Tracker) Prune(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, job := range t.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

func (t *Tracker) update(id uuid.UUID, fn func(*Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	fn(job)
	job.UpdatedAt = t.now()
}
