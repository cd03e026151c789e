package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue Source

	// tracker records job status transitions; may be nil
	tracker *Tracker

	config WorkerPoolConfig

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is the parent of every task context; cancel aborts running tasks
	ctx    context.Context
	cancel context.CancelFunc

	// quit stops the prune monitor
	quit     chan struct{}
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex

	logger *slog.Logger

	// errorHandler is called when a task execution fails
	// If nil, errors are only logged
	errorHandler func(task Task, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int

	// TaskTimeout bounds a single task execution. Zero means no limit.
	TaskTimeout time.Duration

	// JobRetention is how long finished jobs stay in the tracker.
	JobRetention time.Duration

	// PruneInterval defines how often finished jobs are pruned.
	// If zero, defaults to 5 minutes
	PruneInterval time.Duration
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:   2,
		TaskTimeout:   5 * time.Minute,
		JobRetention:  time.Hour,
		PruneInterval: 5 * time.Minute,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration.
// tracker may be nil when job status is not needed.
func NewWorkerPool(taskQueue Source, tracker *Tracker, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if taskQueue == nil {
		panic("taskQueue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "worker_pool"))

	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.PruneInterval <= 0 {
		config.PruneInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue: taskQueue,
		tracker:   tracker,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
		quit:      make(chan struct{}),
		logger:    logger,
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. Calling Start more than once is an error.
func (p *WorkerPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	if p.tracker != nil && p.config.JobRetention > 0 {
		p.wg.Add(1)
		go p.pruneMonitor()
	}

	p.logger.Info("worker pool started", "worker_count", p.config.WorkerCount)
	return nil
}

// Stop shuts the pool down. Workers keep draining the queue until it is
// closed and empty or ctx expires, at which point running tasks are
// cancelled. Stop returns once every worker has exited.
func (p *WorkerPool) Stop(ctx context.Context) error {
	var stopErr error
	p.stopOnce.Do(func() {
		close(p.quit)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			p.logger.Warn("worker pool drain interrupted, cancelling running tasks")
			p.cancel()
			<-done
			stopErr = ctx.Err()
		}
		p.cancel()
		p.logger.Info("worker pool stopped")
	})
	return stopErr
}

// worker processes tasks from the queue
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	tasks := p.taskQueue.Tasks()
	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case task, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task
func (p *WorkerPool) processTask(task Task, workerID int) {
	logger := p.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	ctx := p.ctx
	if p.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer cancel()
	}

	if p.tracker != nil {
		p.tracker.SetStatus(task.ID(), StatusProcessing)
	}
	logger.Info("processing task")

	err := p.execute(ctx, task)
	if err != nil {
		logger.Error("task execution failed", "error", err)
		if p.tracker != nil {
			// Tasks normally record their own failure message; this catches
			// the ones that could not.
			p.tracker.Fail(task.ID(), "task failed")
		}
		if p.errorHandler != nil {
			p.errorHandler(task, err)
		}
		return
	}

	if p.tracker != nil {
		p.tracker.Complete(task.ID(), 0)
	}
	logger.Info("task completed successfully")
}

// execute runs the task and turns a panic into an error.
func (p *WorkerPool) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}

// pruneMonitor periodically removes finished jobs older than the retention period.
func (p *WorkerPool) pruneMonitor() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-p.config.JobRetention)
			if n := p.tracker.Prune(cutoff); n > 0 {
				p.logger.Debug("pruned finished jobs", "count", n)
			}
		}
	}
}
