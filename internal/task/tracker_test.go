package task

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id, user, deck := uuid.New(), uuid.New(), uuid.New()

	job := tr.Register(id, TypeExtraction, user, deck)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, deck, job.DeckID)

	tr.SetStatus(id, StatusProcessing)
	got, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	tr.Complete(id, 12)
	got, err = tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 12, got.CardsAdded)

	// Terminal jobs are frozen.
	tr.Fail(id, "late failure")
	got, _ = tr.Get(id)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Empty(t, got.Error)
}

func TestTracker_GetUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewTracker().Get(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTracker_UpdateUnknownIsNoop(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Fail(uuid.New(), "nothing here")
	tr.Complete(uuid.New(), 1)
	assert.Equal(t, 0, tr.Prune(time.Now().Add(time.Hour)))
}

func TestTracker_Prune(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return now }

	done, failed, running := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{done, failed, running} {
		tr.Register(id, TypeExtraction, uuid.New(), uuid.New())
	}
	tr.Complete(done, 1)
	tr.Fail(failed, "boom")
	tr.SetStatus(running, StatusProcessing)

	assert.Equal(t, 0, tr.Prune(now), "cutoff equal to update time keeps jobs")
	assert.Equal(t, 2, tr.Prune(now.Add(time.Minute)))

	_, err := tr.Get(done)
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = tr.Get(running)
	assert.NoError(t, err)
}
