package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxRetries is the delivery retry ceiling. An entry that fails with
// the ceiling already consumed goes terminal FAILED and is left for
// operator reconciliation.
const MaxRetries = 2

var (
	ErrNotFound = errors.New("outbox entry not found")
	// ErrNotFailed guards reopen: only terminal FAILED entries go back
	// to PENDING.
	ErrNotFailed = errors.New("outbox entry is not FAILED")
)

// Status of an outbox entry. After creation only the dispatcher writes
// it: PENDING -> SENT, PENDING -> PENDING (retry), PENDING -> FAILED.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// EventType routes an entry to its deliverer. The payload stays opaque
// to the dispatcher.
type EventType string

const (
	EventTypeFileReady          EventType = "upload.file_ready"
	EventTypeDownloadRegistered EventType = "download.registered"
	EventTypeWebhook            EventType = "download.webhook"
)

// Entry is one durable side-effect record, co-committed with the
// aggregate mutation that produced it.
type Entry struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	EventType EventType
	Payload   []byte

	Status     Status
	RetryCount int
	LastError  string

	// Claim bookkeeping for concurrent dispatcher instances.
	LeaseOwner string
	LeaseUntil *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	SentAt    *time.Time
}

// NewEntry builds a PENDING entry for the given aggregate and fact.
func NewEntry(ownerID uuid.UUID, eventType EventType, fact any, now time.Time) (*Entry, error) {
	payload, err := json.Marshal(fact)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return &Entry{
		ID:        uuid.Must(uuid.NewV7()),
		OwnerID:   ownerID,
		EventType: eventType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkSent records a successful delivery. Terminal.
func (e *Entry) MarkSent(now time.Time) {
	e.Status = StatusSent
	sentAt := now
	e.SentAt = &sentAt
	e.UpdatedAt = now
}

// RecordFailure counts one failed delivery attempt. The entry stays
// PENDING until the ceiling is consumed, then goes FAILED.
func (e *Entry) RecordFailure(deliveryErr string, now time.Time) {
	e.LastError = deliveryErr
	e.UpdatedAt = now
	if e.RetryCount < MaxRetries {
		e.RetryCount++
		return
	}
	e.Status = StatusFailed
}

// Reopen returns a FAILED entry to PENDING for another delivery round.
// Reserved for operator reconciliation.
func (e *Entry) Reopen(now time.Time) error {
	if e.Status != StatusFailed {
		return ErrNotFailed
	}
	e.Status = StatusPending
	e.RetryCount = 0
	e.UpdatedAt = now
	return nil
}
