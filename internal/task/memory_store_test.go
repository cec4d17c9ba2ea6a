package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTaskStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTaskStore()
	task := newMockTask()

	require.NoError(t, store.SaveTask(ctx, task))

	rec, err := store.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPending, rec.Status())
	assert.Equal(t, "mock", rec.Type())
	assert.JSONEq(t, string(task.Payload()), string(rec.Payload()))
	assert.ErrorIs(t, rec.Execute(ctx), ErrNotExecutable)

	require.NoError(t, store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, "boom"))
	rec, err = store.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, "boom", rec.ErrorMessage)

	result := []byte(`{"success":true,"file_url":"/posters/a.png","file_path":"a.png","filename":"a.png","cached":false}`)
	require.NoError(t, store.SaveTaskResult(ctx, task.ID(), result))
	rec, err = store.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, rec.Status())
	assert.Empty(t, rec.ErrorMessage)

	res, err := rec.PosterResult()
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "/posters/a.png", res.FileURL)
}

func TestMemoryTaskStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTaskStore()
	missing := uuid.New()

	_, err := store.GetTask(ctx, missing)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, store.UpdateTaskStatus(ctx, missing, TaskStatusFailed, ""), ErrTaskNotFound)
	assert.ErrorIs(t, store.SaveTaskResult(ctx, missing, []byte(`{}`)), ErrTaskNotFound)
	assert.ErrorIs(t, store.UpdateTaskStatus(ctx, missing, "exploded", ""), domain.ErrValidation)
	assert.ErrorIs(t, store.SaveTaskResult(ctx, missing, []byte(`{`)), domain.ErrInvalidFormat)
}

func TestMemoryTaskStore_QueriesByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTaskStore()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	first, second, old := newMockTask(), newMockTask(), newMockTask()
	require.NoError(t, store.SaveTask(ctx, first))
	clock = clock.Add(time.Minute)
	require.NoError(t, store.SaveTask(ctx, second))
	require.NoError(t, store.SaveTask(ctx, old))
	require.NoError(t, store.UpdateTaskStatus(ctx, old.ID(), TaskStatusProcessing, ""))

	pending, err := store.GetPendingTasks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID(), pending[0].ID(), "oldest first")

	clock = clock.Add(time.Hour)
	processing, err := store.GetProcessingTasks(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, old.ID(), processing[0].ID())

	processing, err = store.GetProcessingTasks(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, processing)

	assert.Same(t, store, store.WithTx(nil))
}

func TestMemoryProgressStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProgressStore()
	id := uuid.New()

	_, ok, err := store.GetProgress(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetProgress(ctx, id, domain.NewProgress(20, domain.ProgressFetching)))
	p, ok, err := store.GetProgress(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Progress{Current: 20, Total: 100, Status: domain.ProgressFetching}, p)
}
