package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/task"
)

var (
	// ErrTaskNotFound indicates that no poster job exists with the given id.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")
)

// PosterServiceError wraps errors from the poster service with context.
type PosterServiceError struct {
	// Operation is the operation that failed (e.g. "submit", "fetch_map_data")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for PosterServiceError.
func (e *PosterServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("poster service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("poster service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PosterServiceError) Unwrap() error {
	return e.Err
}

// passthrough lists errors whose messages are already fit for end users.
var passthrough = []error{
	domain.ErrValidation,
	domain.ErrPlaceNotFound,
	domain.ErrNoMapData,
	domain.ErrThemeNotFound,
	domain.ErrInvalidID,
	task.ErrQueueFull,
}

// NewPosterServiceError creates a new PosterServiceError.
// Known domain errors and context errors are returned without wrapping.
func NewPosterServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, task.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &PosterServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
