package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/store"
	"github.com/simongrossi/maptoposter-web/internal/task"
)

const taskColumns = `id, type, payload, status, result, error_message, created_at, updated_at`

// PostgresTaskStore implements task.TaskStore on the tasks table.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresTaskStore creates a new PostgresTaskStore. A nil logger falls
// back to slog.Default.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask inserts task with its current status.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	status := t.Status()
	if status == "" {
		status = task.TaskStatusPending
	}
	payload := t.Payload()
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID(), t.Type(), payload, string(status), now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save task",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "save", "insert failed", MapError(err))
	}
	return nil
}

// UpdateTaskStatus sets status and error message. Unknown ids yield
// task.ErrTaskNotFound.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, error_message = NULLIF($2, ''), updated_at = $3
		WHERE id = $4
	`, string(status), errorMsg, s.now(), taskID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update task status",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "update status", "update failed", MapError(err))
	}
	return s.checkFound(result, taskID)
}

// SaveTaskResult stores result and marks the task completed.
func (s *PostgresTaskStore) SaveTaskResult(ctx context.Context, taskID uuid.UUID, result []byte) error {
	if !json.Valid(result) {
		return store.NewStoreError("task", "save result", "result is not valid JSON", store.ErrInvalidEntity)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET result = $1, status = $2, error_message = NULL, updated_at = $3
		WHERE id = $4
	`, result, string(task.TaskStatusCompleted), s.now(), taskID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save task result",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "save result", "update failed", MapError(err))
	}
	return s.checkFound(res, taskID)
}

func (s *PostgresTaskStore) checkFound(result sql.Result, taskID uuid.UUID) error {
	err := CheckRowsAffected(result, "task")
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", task.ErrTaskNotFound, taskID)
	}
	return err
}

// GetTask loads a single record.
func (s *PostgresTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*task.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID)
	rec, err := scanRecord(row)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", task.ErrTaskNotFound, taskID)
		}
		s.logger.ErrorContext(ctx, "failed to get task",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "select failed", mapped)
	}
	return rec, nil
}

// GetPendingTasks returns pending tasks, oldest first.
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks returns processing tasks not updated within olderThan,
// or all of them when olderThan is zero.
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, s.now().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to query tasks by status",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "row iteration failed", MapError(err))
	}
	return tasks, nil
}

// WithTx returns a store bound to tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*task.Record, error) {
	var (
		rec          task.Record
		status       string
		payload      []byte
		result       []byte
		errorMessage sql.NullString
	)
	if err := row.Scan(
		&rec.TaskID,
		&rec.TaskType,
		&payload,
		&status,
		&result,
		&errorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rec.TaskStatus = task.TaskStatus(status)
	if !rec.TaskStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q for task %s", store.ErrInvalidEntity, status, rec.TaskID)
	}
	rec.TaskPayload = json.RawMessage(payload)
	if len(result) > 0 {
		rec.Result = json.RawMessage(result)
	}
	rec.ErrorMessage = errorMessage.String
	return &rec, nil
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)
