package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCreator struct {
	err     error
	lastID  uuid.UUID
	created int
}

func (s *stubCreator) CreateTask(id uuid.UUID, payload []byte) (Task, error) {
	s.created++
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	task := newMockTask()
	task.id = id
	task.payload = payload
	return task, nil
}

type stubSubmitter struct {
	err       error
	submitted []Task
}

func (s *stubSubmitter) Submit(_ context.Context, task Task) error {
	s.submitted = append(s.submitted, task)
	return s.err
}

func TestTaskFactoryEventHandler_HandleEvent(t *testing.T) {
	newEvent := func(t *testing.T, eventType string) *events.TaskRequestEvent {
		t.Helper()
		event, err := events.NewTaskRequestEvent(eventType, map[string]string{"city": "Paris"})
		require.NoError(t, err)
		return event
	}

	tests := []struct {
		name          string
		eventType     string
		createErr     error
		submitErr     error
		wantErr       string
		wantCreated   int
		wantSubmitted int
	}{
		{
			name:          "submits task with event id",
			eventType:     events.PosterRequested,
			wantCreated:   1,
			wantSubmitted: 1,
		},
		{
			name:      "ignores other event types",
			eventType: "something_else",
		},
		{
			name:        "factory error",
			eventType:   events.PosterRequested,
			createErr:   ErrInvalidPayload,
			wantErr:     "failed to create task",
			wantCreated: 1,
		},
		{
			name:          "submit error",
			eventType:     events.PosterRequested,
			submitErr:     ErrQueueFull,
			wantErr:       "failed to submit task",
			wantCreated:   1,
			wantSubmitted: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &stubCreator{err: tt.createErr}
			submitter := &stubSubmitter{err: tt.submitErr}
			handler := NewTaskFactoryEventHandler(events.PosterRequested, creator, submitter, setupTestLogger())

			event := newEvent(t, tt.eventType)
			err := handler.HandleEvent(context.Background(), event)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.createErr != nil {
					assert.True(t, errors.Is(err, tt.createErr))
				}
				if tt.submitErr != nil {
					assert.True(t, errors.Is(err, tt.submitErr))
				}
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantCreated, creator.created)
			require.Len(t, submitter.submitted, tt.wantSubmitted)
			if tt.wantSubmitted > 0 {
				assert.Equal(t, event.ID, submitter.submitted[0].ID())
				assert.JSONEq(t, string(event.Payload), string(submitter.submitted[0].Payload()))
			}
		})
	}
}
