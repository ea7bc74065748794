package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by repositories when no session matches.
	ErrNotFound = errors.New("upload session not found")

	// ErrStaleVersion means a write targeted an outdated aggregate
	// version; the caller must reload and retry the command.
	ErrStaleVersion = errors.New("upload session version is stale")

	// ErrDuplicateKey means a concurrent insert won the idempotency-key
	// race; the caller must re-read and return the winner.
	ErrDuplicateKey = errors.New("upload session idempotency key already used")
)

// ValidationError rejects malformed input before any state mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports an operation that is illegal in the session's
// current state.
type ConflictError struct {
	Current   Status
	Attempted string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot %s session in status %s", e.Attempted, e.Current)
}

// ExpiredError reports an operation attempted on a session whose
// expiry deadline has already passed. Only the expiry sweep may move
// such a session to EXPIRED.
type ExpiredError struct {
	ExpiresAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("session expired at %s", e.ExpiresAt.UTC().Format(time.RFC3339))
}

// PartConflictError reports a part re-record with a different remote
// tag than the one already on the ledger.
type PartConflictError struct {
	PartNumber   int
	RecordedTag  string
	AttemptedTag string
}

func (e *PartConflictError) Error() string {
	return fmt.Sprintf(
		"part %d already recorded with tag %q, got %q",
		e.PartNumber, e.RecordedTag, e.AttemptedTag,
	)
}

// IncompleteError rejects completion of a multipart session while
// parts are still missing.
type IncompleteError struct {
	Missing []int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("multipart session incomplete, missing parts %v", e.Missing)
}
