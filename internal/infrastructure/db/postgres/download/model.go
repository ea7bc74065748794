package download

import (
	"time"

	"github.com/google/uuid"
)

type Download struct {
	ID             uuid.UUID
	IdempotencyKey string
	SourceURL      string
	TenantID       int64
	OrganizationID int64
	Bucket         string
	PathPrefix     string
	WebhookURL     string

	Status       string
	RetryCount   int
	FileAssetID  *uuid.UUID
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}
