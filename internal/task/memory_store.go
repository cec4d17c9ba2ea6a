package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// MemoryTaskStore is a TaskStore kept in process memory. It backs the
// command line tool and tests; nothing survives a restart.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	now     func() time.Time
}

// NewMemoryTaskStore creates an empty store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		records: make(map[uuid.UUID]*Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask stores a snapshot of task. Saving an id twice overwrites the
// earlier record.
func (s *MemoryTaskStore) SaveTask(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[task.ID()] = NewRecord(task, s.now())
	return nil
}

// UpdateTaskStatus implements TaskStore.
func (s *MemoryTaskStore) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown task status %q", domain.ErrValidation, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	rec.TaskStatus = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

// SaveTaskResult implements TaskStore.
func (s *MemoryTaskStore) SaveTaskResult(_ context.Context, taskID uuid.UUID, result []byte) error {
	if !json.Valid(result) {
		return fmt.Errorf("%w: result is not valid JSON", domain.ErrInvalidFormat)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	rec.Result = append(json.RawMessage(nil), result...)
	rec.TaskStatus = TaskStatusCompleted
	rec.ErrorMessage = ""
	rec.UpdatedAt = s.now()
	return nil
}

// GetTask returns a copy of the stored record.
func (s *MemoryTaskStore) GetTask(_ context.Context, taskID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetPendingTasks returns pending tasks, oldest first.
func (s *MemoryTaskStore) GetPendingTasks(_ context.Context) ([]Task, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks returns processing tasks whose last update is older than
// olderThan, or all of them when olderThan is zero.
func (s *MemoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Task, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MemoryTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var recs []*Record
	for _, rec := range s.records {
		if rec.TaskStatus != status {
			continue
		}
		if olderThan > 0 && now.Sub(rec.UpdatedAt) <= olderThan {
			continue
		}
		cp := *rec
		recs = append(recs, &cp)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })

	tasks := make([]Task, len(recs))
	for i, rec := range recs {
		tasks[i] = rec
	}
	return tasks
}

// WithTx returns s; the memory store has no transactions.
func (s *MemoryTaskStore) WithTx(*sql.Tx) TaskStore {
	return s
}

// MemoryProgressStore is a ProgressStore kept in process memory.
type MemoryProgressStore struct {
	mu       sync.RWMutex
	progress map[uuid.UUID]domain.Progress
}

// NewMemoryProgressStore creates an empty progress store.
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{progress: make(map[uuid.UUID]domain.Progress)}
}

// SetProgress implements ProgressStore.
func (s *MemoryProgressStore) SetProgress(_ context.Context, taskID uuid.UUID, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[taskID] = p
	return nil
}

// GetProgress implements ProgressStore.
func (s *MemoryProgressStore) GetProgress(_ context.Context, taskID uuid.UUID) (domain.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[taskID]
	return p, ok, nil
}

var (
	_ TaskStore     = (*MemoryTaskStore)(nil)
	_ ProgressStore = (*MemoryProgressStore)(nil)
)
