package engine

import "errors"

// Expected domain conditions are sentinel errors so callers can map them to
// response semantics with errors.Is. Infrastructure failures are wrapped
// with ErrStorageUnavailable.
var (
	// ErrInvalidEvent marks a malformed event: missing player id or an
	// unknown event type. Not retriable.
	ErrInvalidEvent = errors.New("invalid event")

	ErrTaskNotFound     = errors.New("task not found")
	ErrTaskRequired     = errors.New("task is required and cannot be skipped")
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrAlreadySkipped   = errors.New("task already skipped")

	// ErrConflictRetry is returned by a store when a concurrent update
	// race is detected on a single row; the affected operation may be
	// retried on its own.
	ErrConflictRetry = errors.New("concurrent update conflict")

	// ErrStorageUnavailable wraps downstream collaborator failures. The
	// whole event is safe to retry because every step is idempotent.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
