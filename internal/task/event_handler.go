package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/events"
)

// TaskCreator builds a task from an id and a JSON payload.
type TaskCreator interface {
	CreateTask(id uuid.UUID, payload []byte) (Task, error)
}

// TaskSubmitter accepts tasks for background execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to handle task creation events and delegate them to the appropriate task factory.
type TaskFactoryEventHandler struct {
	eventType string
	factory   TaskCreator
	runner    TaskSubmitter
	logger    *slog.Logger
}

// NewTaskFactoryEventHandler creates a handler for events of eventType.
// Other events are ignored.
func NewTaskFactoryEventHandler(
	eventType string,
	factory TaskCreator,
	runner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		eventType: eventType,
		factory:   factory,
		runner:    runner,
		logger:    logger.With("component", "task_factory_event_handler"),
	}
}

// HandleEvent builds a task whose ID is the event ID and submits it.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != h.eventType {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	task, err := h.factory.CreateTask(event.ID, event.Payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task",
			"error", err,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "task created and submitted successfully",
		"task_id", task.ID(),
		"task_type", task.Type())
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
