package download

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when no download matches.
	ErrNotFound = errors.New("external download not found")

	// ErrStaleVersion means a write targeted an outdated aggregate
	// version; the caller must reload and retry the command.
	ErrStaleVersion = errors.New("external download version is stale")

	// ErrDuplicateKey means a concurrent insert won the idempotency-key
	// race; the caller must re-read and return the winner.
	ErrDuplicateKey = errors.New("external download idempotency key already used")
)

// ValidationError rejects malformed input before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports an operation illegal in the current state,
// naming the state the operation requires.
type ConflictError struct {
	Current   Status
	Required  Status
	Attempted string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"cannot %s download in status %s, requires %s",
		e.Attempted, e.Current, e.Required,
	)
}

// RetryExhaustedError means the retry ceiling has been reached; the
// caller must fail the download instead.
type RetryExhaustedError struct {
	RetryCount int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("cannot retry: retry count %d reached the ceiling of %d", e.RetryCount, MaxRetries)
}
