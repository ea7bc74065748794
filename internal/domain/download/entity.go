package download

import (
	"time"

	"github.com/google/uuid"
)

// MaxRetries is the retry ceiling: once RetryCount reaches it, the only
// forward transition is to FAILED.
const MaxRetries = 2

// Status is the lifecycle state of an external download.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type (
	// Download is a request to fetch a remote resource into the object
	// store, with bounded retries.
	Download struct {
		ID             uuid.UUID
		IdempotencyKey string
		SourceURL      string
		TenantID       int64
		OrganizationID int64
		Bucket         string
		PathPrefix     string
		WebhookURL     string

		Status       Status
		RetryCount   int
		FileAssetID  *uuid.UUID
		ErrorMessage string

		CreatedAt time.Time
		UpdatedAt time.Time
		Version   int64
	}

	// FileAssetRef describes the stored result of a completed download.
	FileAssetRef struct {
		AssetID     uuid.UUID
		Bucket      string
		StorageKey  string
		ContentType string
		SizeBytes   int64
		ETag        string
	}

	// RegisteredFact is emitted on registration; the outbox delivers it
	// to the processing queue for pickup.
	RegisteredFact struct {
		DownloadID     uuid.UUID `json:"download_id"`
		SourceURL      string    `json:"source_url"`
		TenantID       int64     `json:"tenant_id"`
		OrganizationID int64     `json:"organization_id"`
		WebhookURL     string    `json:"webhook_url,omitempty"`
		RegisteredAt   time.Time `json:"registered_at"`
	}

	// WebhookFact is emitted on completion or terminal failure when a
	// webhook URL is configured.
	WebhookFact struct {
		DownloadID   uuid.UUID  `json:"download_id"`
		WebhookURL   string     `json:"webhook_url"`
		Status       Status     `json:"status"`
		FileAssetID  *uuid.UUID `json:"file_asset_id,omitempty"`
		ErrorMessage string     `json:"error_message,omitempty"`
		OccurredAt   time.Time  `json:"occurred_at"`
	}
)

// Register creates a PENDING download and its registered fact.
func Register(
	idempotencyKey string,
	sourceURL string,
	tenantID, organizationID int64,
	bucket, pathPrefix string,
	webhookURL string,
	now time.Time,
) (*Download, RegisteredFact, error) {
	if idempotencyKey == "" {
		return nil, RegisteredFact{}, &ValidationError{Field: "idempotency_key", Reason: "must not be empty"}
	}
	if sourceURL == "" {
		return nil, RegisteredFact{}, &ValidationError{Field: "source_url", Reason: "must not be empty"}
	}
	if bucket == "" {
		return nil, RegisteredFact{}, &ValidationError{Field: "bucket", Reason: "must not be empty"}
	}
	if pathPrefix == "" {
		return nil, RegisteredFact{}, &ValidationError{Field: "path_prefix", Reason: "must not be empty"}
	}

	d := &Download{
		ID:             uuid.Must(uuid.NewV7()),
		IdempotencyKey: idempotencyKey,
		SourceURL:      sourceURL,
		TenantID:       tenantID,
		OrganizationID: organizationID,
		Bucket:         bucket,
		PathPrefix:     pathPrefix,
		WebhookURL:     webhookURL,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	fact := RegisteredFact{
		DownloadID:     d.ID,
		SourceURL:      sourceURL,
		TenantID:       tenantID,
		OrganizationID: organizationID,
		WebhookURL:     webhookURL,
		RegisteredAt:   now,
	}
	return d, fact, nil
}

// StartProcessing moves PENDING to PROCESSING.
func (d *Download) StartProcessing(now time.Time) error {
	if d.Status != StatusPending {
		return &ConflictError{Current: d.Status, Required: StatusPending, Attempted: "start processing"}
	}
	d.Status = StatusProcessing
	d.UpdatedAt = now
	return nil
}

// CanRetry reports whether the retry ceiling has not yet been reached.
func (d *Download) CanRetry() bool {
	return d.RetryCount < MaxRetries
}

// Retry returns a PROCESSING download to PENDING for re-pickup,
// consuming one retry. Past the ceiling callers must Fail instead.
func (d *Download) Retry(now time.Time) error {
	if d.Status != StatusProcessing {
		return &ConflictError{Current: d.Status, Required: StatusProcessing, Attempted: "retry"}
	}
	if !d.CanRetry() {
		return &RetryExhaustedError{RetryCount: d.RetryCount}
	}
	d.Status = StatusPending
	d.RetryCount++
	d.UpdatedAt = now
	return nil
}

// Complete records the stored file and, when a webhook is configured,
// emits the completion fact in the same step.
func (d *Download) Complete(asset FileAssetRef, now time.Time) (*WebhookFact, error) {
	if d.Status != StatusProcessing {
		return nil, &ConflictError{Current: d.Status, Required: StatusProcessing, Attempted: "complete"}
	}
	d.Status = StatusCompleted
	assetID := asset.AssetID
	d.FileAssetID = &assetID
	d.UpdatedAt = now

	if d.WebhookURL == "" {
		return nil, nil
	}
	return &WebhookFact{
		DownloadID:  d.ID,
		WebhookURL:  d.WebhookURL,
		Status:      StatusCompleted,
		FileAssetID: d.FileAssetID,
		OccurredAt:  now,
	}, nil
}

// Fail terminally fails a PROCESSING download, optionally recording a
// fallback asset reference, and emits the failure webhook fact when
// configured.
func (d *Download) Fail(errorMessage string, fallback *uuid.UUID, now time.Time) (*WebhookFact, error) {
	if d.Status != StatusProcessing {
		return nil, &ConflictError{Current: d.Status, Required: StatusProcessing, Attempted: "fail"}
	}
	d.Status = StatusFailed
	d.ErrorMessage = errorMessage
	d.FileAssetID = fallback
	d.UpdatedAt = now

	if d.WebhookURL == "" {
		return nil, nil
	}
	return &WebhookFact{
		DownloadID:   d.ID,
		WebhookURL:   d.WebhookURL,
		Status:       StatusFailed,
		FileAssetID:  fallback,
		ErrorMessage: errorMessage,
		OccurredAt:   now,
	}, nil
}
