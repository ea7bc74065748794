package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists both session variants. Update methods enforce
// optimistic concurrency: a write against a stale Version returns
// ErrStaleVersion, a successful write bumps Version on the aggregate.
type Repository interface {
	CreateSingle(ctx context.Context, s *Single) error
	CreateMultipart(ctx context.Context, m *Multipart) error

	FindSingleByID(ctx context.Context, id uuid.UUID) (*Single, error)
	FindSingleByIdempotencyKey(ctx context.Context, key string) (*Single, error)
	// FindMultipartByID loads the session together with its part ledger.
	FindMultipartByID(ctx context.Context, id uuid.UUID) (*Multipart, error)

	UpdateSingle(ctx context.Context, s *Single) error
	UpdateMultipart(ctx context.Context, m *Multipart) error

	// AddCompletedPart inserts one ledger row. A duplicate
	// (session, part number) insert surfaces as PartConflictError.
	AddCompletedPart(ctx context.Context, sessionID uuid.UUID, p CompletedPart) error

	// ListExpired returns active sessions of both variants whose
	// deadline lies before now, oldest first, at most limit.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Session, error)
}
