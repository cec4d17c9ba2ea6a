package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// Common errors
var (
	ErrNilGenerator     = errors.New("generator cannot be nil")
	ErrNilResultSaver   = errors.New("result saver cannot be nil")
	ErrNilProgressStore = errors.New("progress store cannot be nil")
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
)

// PosterGenerator renders and stores a poster for a request.
type PosterGenerator interface {
	Generate(ctx context.Context, req domain.PosterRequest, report domain.ProgressFunc) (*domain.PosterResult, error)
}

// ResultSaver persists a finished task's result. TaskStore satisfies it.
type ResultSaver interface {
	SaveTaskResult(ctx context.Context, taskID uuid.UUID, result []byte) error
}

// PosterGenerationTask renders one poster in the background.
type PosterGenerationTask struct {
	id        uuid.UUID
	req       domain.PosterRequest
	payload   []byte
	generator PosterGenerator
	results   ResultSaver
	progress  ProgressStore
	logger    *slog.Logger

	mu     sync.RWMutex
	status TaskStatus
}

// NewPosterGenerationTask creates a task for req. req is expected to be
// defaulted and validated already.
func NewPosterGenerationTask(
	id uuid.UUID,
	req domain.PosterRequest,
	generator PosterGenerator,
	results ResultSaver,
	progress ProgressStore,
	logger *slog.Logger,
) (*PosterGenerationTask, error) {
	if id == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if results == nil {
		return nil, ErrNilResultSaver
	}
	if progress == nil {
		return nil, ErrNilProgressStore
	}
	if logger == nil {
		logger = slog.Default()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return &PosterGenerationTask{
		id:        id,
		req:       req,
		payload:   payload,
		generator: generator,
		results:   results,
		progress:  progress,
		logger: logger.With(
			"task_type", TaskTypePosterGeneration,
			"task_id", id,
			"city", req.City,
			"style", req.Style),
		status: TaskStatusPending,
	}, nil
}

func (t *PosterGenerationTask) ID() uuid.UUID   { return t.id }
func (t *PosterGenerationTask) Type() string    { return TaskTypePosterGeneration }
func (t *PosterGenerationTask) Payload() []byte { return t.payload }

// Request returns the poster request the task renders.
func (t *PosterGenerationTask) Request() domain.PosterRequest { return t.req }

// Status returns the in-memory status of the task.
func (t *PosterGenerationTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *PosterGenerationTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// report records progress. Failures to record are logged and otherwise
// ignored; progress is advisory.
func (t *PosterGenerationTask) report(ctx context.Context) domain.ProgressFunc {
	return func(current int, status string) {
		if err := t.progress.SetProgress(ctx, t.id, domain.NewProgress(current, status)); err != nil {
			t.logger.WarnContext(ctx, "failed to record progress",
				"current", current,
				"status", status,
				"error", err)
		}
	}
}

// Execute generates the poster and saves the result.
func (t *PosterGenerationTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)
	t.logger.InfoContext(ctx, "starting poster generation task")

	if err := ctx.Err(); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	// 1. Render and store the poster
	result, err := t.generator.Generate(ctx, t.req, t.report(ctx))
	if err != nil {
		t.setStatus(TaskStatusFailed)
		t.logger.ErrorContext(ctx, "poster generation failed", "error", err)
		return err
	}

	// 2. Persist the result
	data, err := json.Marshal(result)
	if err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to encode poster result: %w", err)
	}
	if err := t.results.SaveTaskResult(context.WithoutCancel(ctx), t.id, data); err != nil {
		t.setStatus(TaskStatusFailed)
		t.logger.ErrorContext(ctx, "failed to save poster result", "error", err)
		return fmt.Errorf("failed to save poster result: %w", err)
	}

	// 3. Final progress
	t.report(context.WithoutCancel(ctx))(100, domain.ProgressCompleted)

	t.setStatus(TaskStatusCompleted)
	t.logger.InfoContext(ctx, "poster generation task completed",
		"filename", result.Filename,
		"cached", result.Cached)
	return nil
}

var _ Task = (*PosterGenerationTask)(nil)
