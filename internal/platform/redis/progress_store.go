// Package redis keeps live task progress in Redis hashes so that every API
// replica sees the progress reported by whichever worker runs the task.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/task"
)

// DefaultProgressTTL bounds how long progress outlives its last update.
const DefaultProgressTTL = 24 * time.Hour

const keyPrefix = "maptoposter:task:"

// Hash fields
const (
	fieldCurrent = "current"
	fieldTotal   = "total"
	fieldStatus  = "status"
)

// Client is the subset of the go-redis API the progress store needs.
type Client interface {
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
}

// ProgressStore implements task.ProgressStore on Redis hashes keyed
// maptoposter:task:{id}.
type ProgressStore struct {
	client Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProgressStore creates a ProgressStore. A ttl of zero uses
// DefaultProgressTTL.
func NewProgressStore(client Client, ttl time.Duration, logger *slog.Logger) *ProgressStore {
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// NewClient opens a go-redis client from a redis:// URL.
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// Key returns the hash key for a task.
func Key(taskID uuid.UUID) string {
	return keyPrefix + taskID.String()
}

// SetProgress writes p and refreshes the key's TTL.
func (s *ProgressStore) SetProgress(ctx context.Context, taskID uuid.UUID, p domain.Progress) error {
	key := Key(taskID)
	fields := map[string]any{
		fieldCurrent: p.Current,
		fieldTotal:   p.Total,
		fieldStatus:  p.Status,
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		s.logger.ErrorContext(ctx, "redis HSET failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to store progress: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set progress ttl: %w", err)
	}
	return nil
}

// GetProgress reads the stored progress. The boolean is false when no
// progress has been recorded or it has expired.
func (s *ProgressStore) GetProgress(ctx context.Context, taskID uuid.UUID) (domain.Progress, bool, error) {
	key := Key(taskID)
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("failed to read progress: %w", err)
	}
	if len(values) == 0 {
		return domain.Progress{}, false, nil
	}

	p, err := parseProgress(values)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding malformed progress hash",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return domain.Progress{}, false, nil
	}
	return p, true, nil
}

func parseProgress(values map[string]string) (domain.Progress, error) {
	current, err := strconv.Atoi(values[fieldCurrent])
	if err != nil {
		return domain.Progress{}, fmt.Errorf("field %s: %w", fieldCurrent, err)
	}
	total := 100
	if raw, ok := values[fieldTotal]; ok {
		if total, err = strconv.Atoi(raw); err != nil {
			return domain.Progress{}, fmt.Errorf("field %s: %w", fieldTotal, err)
		}
	}
	return domain.Progress{
		Current: current,
		Total:   total,
		Status:  values[fieldStatus],
	}, nil
}

var _ task.ProgressStore = (*ProgressStore)(nil)
