package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrNotReady signals that no index snapshot has been published yet.
	ErrNotReady = errors.New("index not ready")
	// ErrInvalidSchema signals an invalid field definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrFieldMismatch signals that field and value lists differ in length.
	ErrFieldMismatch = errors.New("field/value count mismatch")
	// ErrInvalidJob signals an invalid index job configuration.
	ErrInvalidJob = errors.New("invalid index job")
	// ErrJobRunning signals that another index job holds the writer.
	ErrJobRunning = errors.New("index job already running")
	// ErrPromotion signals a failed staging promotion. The staging location is kept.
	ErrPromotion = errors.New("staging promotion failed")
)

// JobError reports a terminal index job failure with the last binding processed.
type JobError struct {
	Key   string
	Field string
	Value string
	Err   error
}

func (e *JobError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("index job failed: %v", e.Err)
	}
	return fmt.Sprintf("index job failed after [%s] %s=%q: %v", e.Key, e.Field, e.Value, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
