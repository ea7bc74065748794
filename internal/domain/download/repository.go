package download

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists external downloads. Update enforces optimistic
// concurrency via the Version counter.
type Repository interface {
	Create(ctx context.Context, d *Download) error
	FindByID(ctx context.Context, id uuid.UUID) (*Download, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Download, error)
	Update(ctx context.Context, d *Download) error

	// ListRetryable returns PENDING downloads last touched before the
	// cutoff, oldest first, for the retry sweep to re-dispatch.
	ListRetryable(ctx context.Context, cutoff time.Time, limit int) ([]*Download, error)
}
