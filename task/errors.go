package task

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the store and service. Callers dispatch with
// errors.Is / errors.As.
var (
	// ErrNotFound means a referenced task ID does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrOutOfRange means a numeric field was given a value outside its
	// valid domain (progress outside [0, 100]).
	ErrOutOfRange = errors.New("progress must be between 0 and 100")

	// ErrStaleWrite means an update carried a version that no longer
	// matches the stored row; the caller read a stale copy.
	ErrStaleWrite = errors.New("task was modified by another writer")
)

// TransitionError reports a lifecycle operation attempted while the task's
// current status does not permit it.
type TransitionError struct {
	TaskID string
	Op     string
	Status Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s task %s in status %q", e.Op, e.TaskID, e.Status)
}

// ValidationError reports invalid input to task creation or update.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
