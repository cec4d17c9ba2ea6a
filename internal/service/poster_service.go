package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/events"
	"github.com/simongrossi/maptoposter-web/internal/redact"
	"github.com/simongrossi/maptoposter-web/internal/task"
	"github.com/simongrossi/maptoposter-web/internal/theme"
)

// TaskReader reads persisted poster jobs.
type TaskReader interface {
	GetTask(ctx context.Context, taskID uuid.UUID) (*task.Record, error)
}

// ThemeLister lists the available themes.
type ThemeLister interface {
	List() ([]theme.Summary, error)
}

// JobState is the job state reported to API clients.
type JobState string

// Job states, as exposed by GET /tasks/{id}.
const (
	JobPending  JobState = "PENDING"
	JobProgress JobState = "PROGRESS"
	JobSuccess  JobState = "SUCCESS"
	JobFailure  JobState = "FAILURE"
)

// StateFor maps a task status to the client-facing job state.
func StateFor(s task.TaskStatus) JobState {
	switch s {
	case task.TaskStatusProcessing:
		return JobProgress
	case task.TaskStatusCompleted:
		return JobSuccess
	case task.TaskStatusFailed:
		return JobFailure
	default:
		return JobPending
	}
}

// TaskView is the client view of a poster job.
type TaskView struct {
	TaskID   uuid.UUID            `json:"task_id"`
	Status   JobState             `json:"status"`
	Progress domain.Progress      `json:"progress"`
	Result   *domain.PosterResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// PosterService accepts poster requests and reports on their jobs.
type PosterService struct {
	emitter  events.EventEmitter
	tasks    TaskReader
	progress task.ProgressStore
	themes   ThemeLister
	logger   *slog.Logger
}

// NewPosterService creates a PosterService.
// It returns an error if any of the required dependencies are nil.
func NewPosterService(
	emitter events.EventEmitter,
	tasks TaskReader,
	progress task.ProgressStore,
	themes ThemeLister,
	logger *slog.Logger,
) (*PosterService, error) {
	switch {
	case emitter == nil:
		return nil, &PosterServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	case tasks == nil:
		return nil, &PosterServiceError{Operation: "create_service", Message: "task reader cannot be nil"}
	case progress == nil:
		return nil, &PosterServiceError{Operation: "create_service", Message: "progress store cannot be nil"}
	case themes == nil:
		return nil, &PosterServiceError{Operation: "create_service", Message: "theme lister cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PosterService{
		emitter:  emitter,
		tasks:    tasks,
		progress: progress,
		themes:   themes,
		logger:   logger.With("component", "poster_service"),
	}, nil
}

// Submit defaults and validates req, then emits it for background
// generation. The returned id identifies the job.
func (s *PosterService) Submit(ctx context.Context, req domain.PosterRequest) (uuid.UUID, error) {
	// 1. Normalise and validate
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	// 2. Build the event; its id doubles as the task id
	event, err := events.NewPosterRequestedEvent(req)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create poster event", "error", err, "city", req.City)
		return uuid.Nil, NewPosterServiceError("submit", "failed to create event", err)
	}

	// 3. Emit; the task handler persists and queues synchronously
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit poster event",
			"error", err,
			"event_id", event.ID)
		return uuid.Nil, NewPosterServiceError("submit", "failed to queue poster job", err)
	}

	s.logger.InfoContext(ctx, "poster job submitted",
		"task_id", event.ID,
		"city", req.City,
		"country", req.Country,
		"style", req.Style,
		"format", req.Format)
	return event.ID, nil
}

// GetTask returns the client view of a job. Unknown ids yield ErrTaskNotFound.
func (s *PosterService) GetTask(ctx context.Context, id uuid.UUID) (*TaskView, error) {
	rec, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, NewPosterServiceError("get_task", "failed to load task", err)
	}

	view := &TaskView{TaskID: rec.ID(), Status: StateFor(rec.Status())}

	switch rec.Status() {
	case task.TaskStatusCompleted:
		view.Progress = domain.NewProgress(100, domain.ProgressCompleted)
		res, err := rec.PosterResult()
		if err != nil {
			s.logger.ErrorContext(ctx, "stored poster result is unreadable", "task_id", id, "error", err)
			return nil, NewPosterServiceError("get_task", "failed to decode result", err)
		}
		view.Result = res

	case task.TaskStatusFailed:
		view.Progress = s.liveProgress(ctx, id, domain.NewProgress(0, "Failed"))
		view.Error = redact.String(rec.ErrorMessage)

	case task.TaskStatusProcessing:
		view.Progress = s.liveProgress(ctx, id, domain.NewProgress(0, domain.ProgressDecoding))

	default:
		view.Progress = s.liveProgress(ctx, id, domain.NewProgress(0, domain.ProgressPending))
	}

	return view, nil
}

// liveProgress reads stored progress, falling back to def. Progress is
// advisory so read failures are only logged.
func (s *PosterService) liveProgress(ctx context.Context, id uuid.UUID, def domain.Progress) domain.Progress {
	p, ok, err := s.progress.GetProgress(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read task progress", "task_id", id, "error", err)
		return def
	}
	if !ok {
		return def
	}
	return p
}

// Themes lists the available themes.
func (s *PosterService) Themes() ([]theme.Summary, error) {
	list, err := s.themes.List()
	if err != nil {
		return nil, NewPosterServiceError("list_themes", "failed to list themes", err)
	}
	return list, nil
}
