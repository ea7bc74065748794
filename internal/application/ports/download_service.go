package ports

import (
	"context"

	"github.com/google/uuid"

	"transfer-manager-api/internal/domain/download"
)

type RegisterDownloadCommand struct {
	IdempotencyKey string
	SourceURL      string
	TenantID       int64
	OrganizationID int64
	WebhookURL     string
}

type DownloadService interface {
	Register(ctx context.Context, cmd RegisterDownloadCommand) (*download.Download, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*download.Download, error)
	// Process runs one download attempt end to end: claim, fetch, store,
	// then complete, retry or fail. Invoked by the queue consumer and
	// the retry sweep.
	Process(ctx context.Context, id uuid.UUID) error
	// RetrySweep re-dispatches PENDING downloads abandoned by earlier
	// attempts and returns how many were picked up.
	RetrySweep(ctx context.Context) (int, error)
}
