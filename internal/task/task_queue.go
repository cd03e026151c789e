package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded in-memory queue between extraction requests and
// the worker pool.
type TaskQueue struct {
	mu     sync.RWMutex
	tasks  chan Task
	closed bool
	logger *slog.Logger
}

var (
	_ Source = (*TaskQueue)(nil)
	_ Sink   = (*TaskQueue)(nil)
)

// NewTaskQueue returns a queue holding at most size pending tasks.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskQueue{
		tasks:  make(chan Task, max(size, 0)),
		logger: logger.With(slog.String("component", "task_queue")),
	}
}

// Enqueue never blocks. A full queue returns ErrQueueFull so the caller can
// fail the job instead of stalling the request.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}

	q.logger.Debug("task enqueued",
		slog.String("task_id", task.ID().String()),
		slog.String("task_type", task.Type()),
		slog.Int("pending", len(q.tasks)))
	return nil
}

// Close stops accepting tasks. Workers still drain what is already queued.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
	q.logger.Info("task queue closed", slog.Int("pending", len(q.tasks)))
}

// Len is the number of tasks not yet picked up by a worker.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

func (q *TaskQueue) Tasks() <-chan Task {
	return q.tasks
}
