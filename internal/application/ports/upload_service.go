package ports

import (
	"context"

	"github.com/google/uuid"

	"transfer-manager-api/internal/domain/session"
)

type (
	InitiateSingleCommand struct {
		IdempotencyKey string
		TenantID       int64
		OrganizationID int64
		FileName       string
		ContentType    string
		SizeBytes      int64
	}

	InitiateMultipartCommand struct {
		TenantID       int64
		OrganizationID int64
		FileName       string
		ContentType    string
		SizeBytes      int64
		TotalParts     int
		PartSize       int64
	}

	RecordPartCommand struct {
		SessionID  uuid.UUID
		PartNumber int
		ETag       string
		SizeBytes  int64
	}

	// SessionView is the transport-facing status of either variant.
	SessionView struct {
		SessionID     uuid.UUID
		Kind          string // "SINGLE" | "MULTIPART"
		Status        session.Status
		FileName      string
		Bucket        string
		StorageKey    string
		PartsRecorded int
		TotalParts    int
		ExpiresAt     int64 // unix seconds
	}
)

type UploadService interface {
	InitiateSingle(ctx context.Context, cmd InitiateSingleCommand) (*session.Single, error)
	InitiateMultipart(ctx context.Context, cmd InitiateMultipartCommand) (*session.Multipart, error)
	RecordPart(ctx context.Context, cmd RecordPartCommand) (session.CompletedPart, error)
	// Complete finishes either variant; etag is the client-confirmed tag
	// for single uploads and ignored for multipart (the object store
	// produces the final tag during assembly).
	Complete(ctx context.Context, sessionID uuid.UUID, etag string) (*SessionView, error)
	Cancel(ctx context.Context, sessionID uuid.UUID) error
	GetStatus(ctx context.Context, sessionID uuid.UUID) (*SessionView, error)
	// ExpireSessions transitions overdue active sessions to EXPIRED and
	// returns how many were swept.
	ExpireSessions(ctx context.Context) (int, error)
}
