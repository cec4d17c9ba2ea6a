package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/events"
	"github.com/simongrossi/maptoposter-web/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc      *PosterService
	emitter  *events.InMemoryEventEmitter
	store    *task.MemoryTaskStore
	progress *task.MemoryProgressStore
	received []*events.TaskRequestEvent
}

// newServiceFixture wires the service to an emitter whose handler saves
// the task without running it.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		emitter:  events.NewInMemoryEventEmitter(discardLogger()),
		store:    task.NewMemoryTaskStore(),
		progress: task.NewMemoryProgressStore(),
	}
	f.emitter.RegisterHandler(events.HandlerFunc(func(ctx context.Context, e *events.TaskRequestEvent) error {
		f.received = append(f.received, e)
		return f.store.SaveTask(ctx, &task.Record{
			TaskID:      e.ID,
			TaskType:    task.TaskTypePosterGeneration,
			TaskPayload: e.Payload,
			TaskStatus:  task.TaskStatusPending,
		})
	}))

	svc, err := NewPosterService(f.emitter, f.store, f.progress, &fakeThemes{}, discardLogger())
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewPosterService_NilDependencies(t *testing.T) {
	store := task.NewMemoryTaskStore()
	progress := task.NewMemoryProgressStore()
	emitter := events.NewInMemoryEventEmitter(nil)

	tests := []struct {
		name    string
		build   func() (*PosterService, error)
		message string
	}{
		{"emitter", func() (*PosterService, error) {
			return NewPosterService(nil, store, progress, &fakeThemes{}, nil)
		}, "emitter cannot be nil"},
		{"tasks", func() (*PosterService, error) {
			return NewPosterService(emitter, nil, progress, &fakeThemes{}, nil)
		}, "task reader cannot be nil"},
		{"progress", func() (*PosterService, error) {
			return NewPosterService(emitter, store, nil, &fakeThemes{}, nil)
		}, "progress store cannot be nil"},
		{"themes", func() (*PosterService, error) {
			return NewPosterService(emitter, store, progress, nil, nil)
		}, "theme lister cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.build()
			assert.Nil(t, svc)
			var serr *PosterServiceError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.message, serr.Message)
		})
	}
}

func TestPosterService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("emits defaulted request and returns event id", func(t *testing.T) {
		f := newServiceFixture(t)

		id, err := f.svc.Submit(ctx, domain.PosterRequest{City: "Paris", Country: "France", Format: "PNG"})
		require.NoError(t, err)
		require.Len(t, f.received, 1)
		assert.Equal(t, f.received[0].ID, id)
		assert.Equal(t, events.PosterRequested, f.received[0].Type)

		var req domain.PosterRequest
		require.NoError(t, json.Unmarshal(f.received[0].Payload, &req))
		assert.Equal(t, domain.DefaultStyle, req.Style)
		assert.Equal(t, "png", req.Format)
		assert.Equal(t, domain.DefaultDistance, req.Distance)

		rec, err := f.store.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, task.TaskStatusPending, rec.Status())
	})

	t.Run("invalid request is not emitted", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Submit(ctx, domain.PosterRequest{City: "Paris", Country: "France", Distance: 10})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, f.received)
	})

	t.Run("queue full passes through", func(t *testing.T) {
		emitter := events.NewInMemoryEventEmitter(discardLogger())
		emitter.RegisterHandler(events.HandlerFunc(func(context.Context, *events.TaskRequestEvent) error {
			return task.ErrQueueFull
		}))
		svc, err := NewPosterService(emitter, task.NewMemoryTaskStore(), task.NewMemoryProgressStore(), &fakeThemes{}, nil)
		require.NoError(t, err)

		_, err = svc.Submit(ctx, domain.PosterRequest{City: "Paris", Country: "France"})
		assert.ErrorIs(t, err, task.ErrQueueFull)
	})

	t.Run("no handlers is wrapped", func(t *testing.T) {
		svc, err := NewPosterService(events.NewInMemoryEventEmitter(nil), task.NewMemoryTaskStore(), task.NewMemoryProgressStore(), &fakeThemes{}, nil)
		require.NoError(t, err)

		_, err = svc.Submit(ctx, domain.PosterRequest{City: "Paris", Country: "France"})
		var serr *PosterServiceError
		require.ErrorAs(t, err, &serr)
		assert.ErrorIs(t, err, events.ErrNoHandlers)
	})
}

func TestPosterService_GetTask(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	id, err := f.svc.Submit(ctx, domain.PosterRequest{City: "Paris", Country: "France"})
	require.NoError(t, err)

	t.Run("pending without progress", func(t *testing.T) {
		view, err := f.svc.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, JobPending, view.Status)
		assert.Equal(t, domain.NewProgress(0, domain.ProgressPending), view.Progress)
		assert.Nil(t, view.Result)
	})

	t.Run("processing with live progress", func(t *testing.T) {
		require.NoError(t, f.store.UpdateTaskStatus(ctx, id, task.TaskStatusProcessing, ""))
		require.NoError(t, f.progress.SetProgress(ctx, id, domain.NewProgress(60, domain.ProgressRendering)))

		view, err := f.svc.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, JobProgress, view.Status)
		assert.Equal(t, 60, view.Progress.Current)
		assert.Equal(t, domain.ProgressRendering, view.Progress.Status)
	})

	t.Run("failed with redacted error", func(t *testing.T) {
		require.NoError(t, f.store.UpdateTaskStatus(ctx, id, task.TaskStatusFailed,
			"fetch failed: redis://user:pw@cache.internal:6379 refused"))

		view, err := f.svc.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, JobFailure, view.Status)
		assert.NotContains(t, view.Error, "pw@")
		assert.Contains(t, view.Error, "fetch failed")
	})

	t.Run("completed with result", func(t *testing.T) {
		result := domain.PosterResult{Success: true, FileURL: "/posters/p.png", FilePath: "p.png", Filename: "p.png"}
		data, err := json.Marshal(result)
		require.NoError(t, err)
		require.NoError(t, f.store.SaveTaskResult(ctx, id, data))

		view, err := f.svc.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, JobSuccess, view.Status)
		assert.Equal(t, domain.NewProgress(100, domain.ProgressCompleted), view.Progress)
		require.NotNil(t, view.Result)
		assert.Equal(t, result, *view.Result)
		assert.Empty(t, view.Error)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.svc.GetTask(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestPosterService_Themes(t *testing.T) {
	f := newServiceFixture(t)
	list, err := f.svc.Themes()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "noir", list[0].ID)

	svc, err := NewPosterService(f.emitter, f.store, f.progress, &fakeThemes{err: errors.New("unreadable")}, nil)
	require.NoError(t, err)
	_, err = svc.Themes()
	var serr *PosterServiceError
	assert.ErrorAs(t, err, &serr)
}

func TestStateFor(t *testing.T) {
	assert.Equal(t, JobPending, StateFor(task.TaskStatusPending))
	assert.Equal(t, JobProgress, StateFor(task.TaskStatusProcessing))
	assert.Equal(t, JobSuccess, StateFor(task.TaskStatusCompleted))
	assert.Equal(t, JobFailure, StateFor(task.TaskStatusFailed))
	assert.Equal(t, JobPending, StateFor("unknown"))
}

func TestNewPosterServiceError(t *testing.T) {
	assert.NoError(t, NewPosterServiceError("op", "msg", nil))
	assert.Equal(t, ErrTaskNotFound, NewPosterServiceError("op", "msg", task.ErrTaskNotFound))

	place := geocodeErr()
	assert.Same(t, place, NewPosterServiceError("op", "msg", place))

	err := NewPosterServiceError("render", "failed to render poster", errors.New("boom"))
	assert.EqualError(t, err, "poster service render failed: failed to render poster: boom")
}

func geocodeErr() error {
	return &wrappedPlaceError{}
}

type wrappedPlaceError struct{}

func (*wrappedPlaceError) Error() string { return "could not find coordinates for X, Y" }
func (*wrappedPlaceError) Unwrap() error { return domain.ErrPlaceNotFound }
