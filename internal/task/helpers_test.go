package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte

	mu     sync.Mutex
	status TaskStatus
	execFn func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID   { return m.id }
func (m *mockTask) Type() string    { return m.taskType }
func (m *mockTask) Payload() []byte { return m.payload }

func (m *mockTask) Status() TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return &mockTask{
		id:       uuid.New(),
		taskType: "mock",
		payload:  []byte(`{"message":"test payload"}`),
		status:   TaskStatusPending,
	}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// waitForStatus polls store until the task reaches want.
func waitForStatus(t *testing.T, store TaskStore, id uuid.UUID, want TaskStatus) *Record {
	t.Helper()
	var rec *Record
	require.Eventually(t, func() bool {
		var err error
		rec, err = store.GetTask(context.Background(), id)
		return err == nil && rec.Status() == want
	}, 2*time.Second, 10*time.Millisecond, "task %s never reached %s", id, want)
	return rec
}

// mapRecoverer rebuilds stored tasks from a fixed set of mock tasks.
type mapRecoverer map[uuid.UUID]Task

func (m mapRecoverer) RecoverTask(stored Task) (Task, error) {
	if t, ok := m[stored.ID()]; ok {
		return t, nil
	}
	return nil, ErrUnknownType
}
