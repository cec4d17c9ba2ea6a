package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it is failed by the monitor
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// Messages written to the error column by the runner itself.
const (
	msgQueueFull   = "task queue is full"
	msgInterrupted = "interrupted by shutdown"
	msgStuck       = "task timed out in processing state"
)

// TaskRunner persists submitted tasks, queues them and runs them on a
// WorkerPool.
type TaskRunner struct {
	store     TaskStore
	queue     *TaskQueue
	pool      *WorkerPool
	recoverer TaskRecoverer
	config    TaskRunnerConfig
	logger    *slog.Logger

	monitorCtx    context.Context
	monitorCancel context.CancelFunc
	monitorWG     sync.WaitGroup

	errHandler func(task Task, err error)
	stopOnce   sync.Once
}

// NewTaskRunner creates a new TaskRunner. recoverer may be nil, in which
// case pending tasks found at startup are left in the store.
func NewTaskRunner(store TaskStore, recoverer TaskRecoverer, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:         store,
		queue:         queue,
		pool:          pool,
		recoverer:     recoverer,
		config:        config,
		logger:        logger,
		monitorCtx:    ctx,
		monitorCancel: cancel,
	}
	pool.SetProcessFunc(r.processTask)
	pool.SetErrorHandler(func(task Task, err error) {
		if r.errHandler != nil {
			r.errHandler(task, err)
		}
	})
	return r
}

// SetErrorHandler sets a callback for failed tasks. Failures are logged
// regardless.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit saves task and queues it. When the queue is full the stored task is
// marked failed and an error wrapping ErrQueueFull is returned.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		r.logger.WarnContext(ctx, "rejecting task",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
		msg := msgQueueFull
		if errors.Is(err, ErrQueueClosed) {
			msg = ErrQueueClosed.Error()
		}
		if updateErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, msg); updateErr != nil {
			r.logger.ErrorContext(ctx, "failed to mark rejected task as failed",
				"task_id", task.ID(),
				"error", updateErr)
		}
		return err
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck task
// monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(context.Background()); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.monitorWG.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop cancels running tasks and waits for the workers and the monitor to
// exit. Tasks interrupted this way go back to pending.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.monitorCancel()
		r.monitorWG.Wait()
		r.pool.Stop()
		r.queue.Close()
	})
}

// Recover resets tasks left in processing by a previous run to pending, then
// rebuilds every pending task and queues it.
func (r *TaskRunner) Recover(ctx context.Context) error {
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}
	for _, t := range processing {
		if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusPending, ""); err != nil {
			r.logger.ErrorContext(ctx, "failed to reset processing task status",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
		}
	}

	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	r.logger.InfoContext(ctx, "recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	if r.recoverer == nil {
		if len(pending) > 0 {
			r.logger.WarnContext(ctx, "no recoverer configured, leaving pending tasks in store",
				"pending_count", len(pending))
		}
		return nil
	}

	for _, stored := range pending {
		t, err := r.recoverer.RecoverTask(stored)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to rebuild pending task",
				"task_id", stored.ID(),
				"task_type", stored.Type(),
				"error", err)
			if updateErr := r.store.UpdateTaskStatus(ctx, stored.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
				r.logger.ErrorContext(ctx, "failed to mark unrecoverable task as failed",
					"task_id", stored.ID(),
					"error", updateErr)
			}
			continue
		}

		if err := r.queue.Enqueue(t); err != nil {
			r.logger.ErrorContext(ctx, "failed to requeue pending task",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
		}
	}

	return nil
}

// processTask is the WorkerPool process function.
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) error {
	storeCtx := context.WithoutCancel(ctx)
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update task status to processing: %w", err)
	}

	logger.Info("processing task")
	started := time.Now()

	err := callSafely(func() error { return task.Execute(ctx) })
	if err != nil {
		status, msg := TaskStatusFailed, err.Error()
		if ctx.Err() != nil {
			status, msg = TaskStatusPending, msgInterrupted
		}
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), status, msg); updateErr != nil {
			logger.Error("failed to record task failure", "error", updateErr)
		}
		return err
	}

	if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update task status to completed", "error", updateErr)
	}
	logger.Info("task completed successfully", "duration", time.Since(started))
	return nil
}

// stuckTaskMonitor periodically fails tasks that have been processing for
// longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.monitorWG.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.monitorCtx.Done():
			return
		case <-ticker.C:
			r.failStuckTasks(r.monitorCtx)
		}
	}
}

func (r *TaskRunner) failStuckTasks(ctx context.Context) {
	if r.config.StuckTaskAge <= 0 {
		return
	}

	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to check for stuck tasks", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.WarnContext(ctx, "found stuck tasks", "count", len(stuck))
	for _, t := range stuck {
		if err := r.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, msgStuck); err != nil {
			r.logger.ErrorContext(ctx, "failed to fail stuck task",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"error", err)
		}
	}
}
