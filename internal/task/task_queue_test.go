package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskQueue(t *testing.T) {
	q := NewTaskQueue(5, setupTestLogger())
	assert.Equal(t, 5, cap(q.tasks))
	assert.False(t, q.closed)

	q = NewTaskQueue(0, nil)
	assert.Equal(t, 1, cap(q.tasks), "non-positive sizes are raised to one")
}

func TestEnqueue(t *testing.T) {
	q := NewTaskQueue(2, setupTestLogger())

	require.NoError(t, q.Enqueue(newMockTask()))
	require.NoError(t, q.Enqueue(newMockTask()))
	assert.Equal(t, 2, q.Len())

	err := q.Enqueue(newMockTask())
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Contains(t, err.Error(), "capacity 2")
}

func TestClose(t *testing.T) {
	q := NewTaskQueue(2, setupTestLogger())
	task := newMockTask()
	require.NoError(t, q.Enqueue(task))

	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Enqueue(newMockTask()), ErrQueueClosed)

	got, ok := <-q.GetChannel()
	require.True(t, ok, "queued tasks stay readable after close")
	assert.Equal(t, task.ID(), got.ID())

	_, ok = <-q.GetChannel()
	assert.False(t, ok)
}

func TestConcurrentEnqueueAndClose(t *testing.T) {
	q := NewTaskQueue(100, setupTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Enqueue(newMockTask())
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueClosed)
			}
		}()
	}
	q.Close()
	wg.Wait()

	assert.LessOrEqual(t, q.Len(), 50)
}
