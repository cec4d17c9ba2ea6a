package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// TaskTypePosterGeneration is the type of poster rendering jobs.
const TaskTypePosterGeneration = "poster_generation"

// Errors shared by task stores and the runner.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrNotExecutable  = errors.New("stored task must be rebuilt before it can run")
	ErrUnknownType    = errors.New("unknown task type")
	ErrInvalidPayload = errors.New("invalid task payload")
)

// Task represents a unit of background work to be processed
type Task interface {
	ID() uuid.UUID
	Type() string
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue returns ErrQueueFull or ErrQueueClosed when the task cannot be
	// accepted.
	Enqueue(task Task) error
	Close()
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus sets status and error message. An empty errorMsg
	// clears any previous message.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// SaveTaskResult stores the JSON result and marks the task completed.
	SaveTaskResult(ctx context.Context, taskID uuid.UUID, result []byte) error

	// GetTask returns ErrTaskNotFound for an unknown id.
	GetTask(ctx context.Context, taskID uuid.UUID) (*Record, error)

	GetPendingTasks(ctx context.Context) ([]Task, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// TaskRecoverer rebuilds an executable task from a persisted one.
type TaskRecoverer interface {
	RecoverTask(stored Task) (Task, error)
}

// RecovererFunc adapts a function to the TaskRecoverer interface.
type RecovererFunc func(stored Task) (Task, error)

// RecoverTask calls f(stored).
func (f RecovererFunc) RecoverTask(stored Task) (Task, error) {
	return f(stored)
}

// ProgressStore keeps the live progress of running tasks.
type ProgressStore interface {
	SetProgress(ctx context.Context, taskID uuid.UUID, p domain.Progress) error
	// GetProgress reports false when nothing has been recorded for the task.
	GetProgress(ctx context.Context, taskID uuid.UUID) (domain.Progress, bool, error)
}

// Record is a task as persisted by a TaskStore. It satisfies Task so that
// stores can hand it to the runner, but Execute always fails: the runner
// rebuilds it through a TaskRecoverer first.
type Record struct {
	TaskID       uuid.UUID       `json:"id"`
	TaskType     string          `json:"type"`
	TaskPayload  json.RawMessage `json:"payload"`
	TaskStatus   TaskStatus      `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewRecord snapshots task as a new record.
func NewRecord(task Task, now time.Time) *Record {
	status := task.Status()
	if status == "" {
		status = TaskStatusPending
	}
	return &Record{
		TaskID:      task.ID(),
		TaskType:    task.Type(),
		TaskPayload: append(json.RawMessage(nil), task.Payload()...),
		TaskStatus:  status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *Record) ID() uuid.UUID      { return r.TaskID }
func (r *Record) Type() string       { return r.TaskType }
func (r *Record) Payload() []byte    { return r.TaskPayload }
func (r *Record) Status() TaskStatus { return r.TaskStatus }

// Execute always returns ErrNotExecutable.
func (r *Record) Execute(context.Context) error {
	return ErrNotExecutable
}

// PosterResult decodes the stored result, if any.
func (r *Record) PosterResult() (*domain.PosterResult, error) {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, nil
	}
	var res domain.PosterResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
