package task

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// PosterTaskFactory builds PosterGenerationTasks from event payloads and from
// persisted records.
type PosterTaskFactory struct {
	generator PosterGenerator
	results   ResultSaver
	progress  ProgressStore
	logger    *slog.Logger
}

// NewPosterTaskFactory creates a factory sharing its dependencies with every
// task it builds.
func NewPosterTaskFactory(
	generator PosterGenerator,
	results ResultSaver,
	progress ProgressStore,
	logger *slog.Logger,
) (*PosterTaskFactory, error) {
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
	return &PosterTaskFactory{
		generator: generator,
		results:   results,
		progress:  progress,
		logger:    logger,
	}, nil
}

// CreateTask decodes a JSON poster request and builds a task for it. The
// request is defaulted and validated again.
func (f *PosterTaskFactory) CreateTask(id uuid.UUID, payload []byte) (Task, error) {
	var req domain.PosterRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return NewPosterGenerationTask(id, req, f.generator, f.results, f.progress, f.logger)
}

// RecoverTask rebuilds a persisted poster task.
func (f *PosterTaskFactory) RecoverTask(stored Task) (Task, error) {
	if stored.Type() != TaskTypePosterGeneration {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, stored.Type())
	}
	return f.CreateTask(stored.ID(), stored.Payload())
}

var _ TaskRecoverer = (*PosterTaskFactory)(nil)
