package session

import (
	"time"

	"github.com/google/uuid"
)

type (
	Single struct {
		ID             uuid.UUID
		IdempotencyKey string
		TenantID       int64
		OrganizationID int64

		FileName    string
		ContentType string
		SizeBytes   int64
		Bucket      string
		StorageKey  string

		PresignedURL string
		ETag         string
		Status       string

		CreatedAt time.Time
		UpdatedAt time.Time
		ExpiresAt time.Time
		Version   int64
	}

	Multipart struct {
		ID             uuid.UUID
		TenantID       int64
		OrganizationID int64

		FileName    string
		ContentType string
		SizeBytes   int64
		Bucket      string
		StorageKey  string

		UploadID   string
		TotalParts int
		PartSize   int64
		FinalETag  string
		Status     string

		CreatedAt time.Time
		UpdatedAt time.Time
		ExpiresAt time.Time
		Version   int64
	}

	CompletedPart struct {
		SessionID  uuid.UUID
		PartNumber int
		ETag       string
		SizeBytes  int64
		UploadedAt time.Time
	}
)
