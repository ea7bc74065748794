package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists outbox entries. Insert happens inside the same
// transaction as the owning aggregate's mutation; everything else is
// dispatcher-side.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error

	// Claim leases up to limit PENDING entries, oldest first, to the
	// given owner. An entry whose lease has not lapsed is invisible to
	// other claimers, so concurrent dispatchers never double-dispatch.
	Claim(ctx context.Context, owner string, leaseFor time.Duration, limit int, now time.Time) ([]*Entry, error)

	MarkSent(ctx context.Context, e *Entry) error
	// RecordFailure persists status, retry count and last error after a
	// failed attempt, releasing the lease.
	RecordFailure(ctx context.Context, e *Entry) error

	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// Reopen moves a FAILED entry back to PENDING (reconciliation).
	Reopen(ctx context.Context, e *Entry) error
}
