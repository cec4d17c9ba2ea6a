package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosterRequestedEvent(t *testing.T) {
	req := domain.PosterRequest{City: "Paris", Country: "France"}
	req.ApplyDefaults()

	event, err := NewPosterRequestedEvent(req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, PosterRequested, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded domain.PosterRequest
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, req.City, decoded.City)
	assert.Equal(t, req.Distance, decoded.Distance)
	assert.Equal(t, req.Hash(), decoded.Hash())
}

func TestNewTaskRequestEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewTaskRequestEvent("broken", make(chan int))
	assert.Error(t, err)
}

// MockEventHandler records what it handles.
type MockEventHandler struct {
	LastEvent    *TaskRequestEvent
	HandlerError error
	HandledCount int
}

func (h *MockEventHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var seen *TaskRequestEvent
	h := HandlerFunc(func(_ context.Context, e *TaskRequestEvent) error {
		seen = e
		return errors.New("boom")
	})

	event, err := NewTaskRequestEvent("x", nil)
	require.NoError(t, err)

	assert.EqualError(t, h.HandleEvent(context.Background(), event), "boom")
	assert.Same(t, event, seen)
}
