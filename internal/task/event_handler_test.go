package task

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/mocks"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractionEventHandler_EnqueuesTask(t *testing.T) {
	t.Parallel()

	log, _ := logger.GetTestLogger(t)
	decks, tracker, req := extractionFixture(t)
	q := NewTaskQueue(1, log)
	h := NewExtractionEventHandler(&mocks.MockGenerator{}, decks, q, tracker, log)

	event, err := events.NewEvent(events.TypeExtractionRequested, req)
	require.NoError(t, err)
	require.NoError(t, h.HandleEvent(context.Background(), event))

	require.Equal(t, 1, q.Len())
	queued := <-q.Tasks()
	assert.Equal(t, req.JobID, queued.ID())
	assert.Equal(t, TypeExtraction, queued.Type())
}

func TestExtractionEventHandler_IgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, nil)
	h := NewExtractionEventHandler(&mocks.MockGenerator{}, mocks.NewMockDeckStore(), q, nil, nil)

	event, err := events.NewEvent(events.TypeCardRated, map[string]string{"card_id": uuid.NewString()})
	require.NoError(t, err)
	require.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Equal(t, 0, q.Len())
}

func TestExtractionEventHandler_QueueFullFailsJob(t *testing.T) {
	t.Parallel()

	decks, tracker, req := extractionFixture(t)
	q := NewTaskQueue(0, nil)
	h := NewExtractionEventHandler(&mocks.MockGenerator{}, decks, q, tracker, nil)

	event, err := events.NewEvent(events.TypeExtractionRequested, req)
	require.NoError(t, err)

	err = h.HandleEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrQueueFull)

	job, _ := tracker.Get(req.JobID)
	assert.Equal(t, StatusFailed, job.Status)
}

func TestExtractionEventHandler_BadPayload(t *testing.T) {
	t.Parallel()

	h := NewExtractionEventHandler(&mocks.MockGenerator{}, mocks.NewMockDeckStore(), NewTaskQueue(1, nil), nil, nil)
	event := &events.Event{ID: uuid.New(), Type: events.TypeExtractionRequested, Payload: []byte(`{"job_id": 7}`)}

	assert.Error(t, h.HandleEvent(context.Background(), event))
}
