package task

import (
	"context"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tracked job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the job has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TypeExtraction generates cards from a document and appends them to a deck.
const TypeExtraction = "extraction"

// Task is a unit of background work run by the worker pool.
type Task interface {
	// ID is shared with the task's tracked job.
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// Source hands queued tasks to workers.
type Source interface {
	Tasks() <-chan Task
}

// Sink accepts tasks for background execution. Enqueue fails once the sink
// is full or closed.
type Sink interface {
	Enqueue(task Task) error
	Close()
}
