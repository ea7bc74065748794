package session

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type (
	// FileMeta is the caller-declared description of the file being
	// transferred.
	FileMeta struct {
		FileName    string
		ContentType string
		SizeBytes   int64
	}

	// StorageTarget is the object-store destination. Assigned once at
	// creation and never reassigned.
	StorageTarget struct {
		Bucket     string
		StorageKey string
	}

	// Meta carries the identity and bookkeeping shared by both session
	// variants.
	Meta struct {
		ID             uuid.UUID
		TenantID       int64
		OrganizationID int64
		FileMeta
		StorageTarget

		Status    Status
		CreatedAt time.Time
		UpdatedAt time.Time
		ExpiresAt time.Time
		Version   int64
	}

	// Single is an upload session bound to exactly one presigned PUT URL.
	Single struct {
		Meta
		IdempotencyKey string
		PresignedURL   string
		ETag           string
	}

	// Multipart is an upload session bound to one remote multipart
	// upload id, with a ledger of completed parts.
	Multipart struct {
		Meta
		UploadID   string
		TotalParts int
		PartSize   int64
		FinalETag  string
		Parts      []CompletedPart
	}

	// CompletedPart is one successfully uploaded chunk. Immutable once
	// recorded.
	CompletedPart struct {
		PartNumber int
		ETag       string
		SizeBytes  int64
		UploadedAt time.Time
	}

	// FileReadyFact is emitted when a session completes. The outbox
	// turns it into a file-processing request.
	FileReadyFact struct {
		SessionID   uuid.UUID `json:"session_id"`
		Bucket      string    `json:"bucket"`
		StorageKey  string    `json:"storage_key"`
		ETag        string    `json:"etag"`
		ContentType string    `json:"content_type"`
		SizeBytes   int64     `json:"size_bytes"`
		CompletedAt time.Time `json:"completed_at"`
	}
)

// Session is the common contract of both variants, enough for the
// expiry sweep and status queries to treat them uniformly.
type Session interface {
	SessionID() uuid.UUID
	CurrentStatus() Status
	Expiry() time.Time
	Cancel(now time.Time) error
	MarkExpired(now time.Time) error
}

func newID() uuid.UUID {
	// v7: globally unique and sortable by creation time
	return uuid.Must(uuid.NewV7())
}

func validateFileMeta(fm FileMeta) error {
	if fm.FileName == "" {
		return &ValidationError{Field: "file_name", Reason: "must not be empty"}
	}
	if fm.SizeBytes < 0 {
		return &ValidationError{Field: "size_bytes", Reason: "must not be negative"}
	}
	return nil
}

func validateTarget(t StorageTarget) error {
	if t.Bucket == "" {
		return &ValidationError{Field: "bucket", Reason: "must not be empty"}
	}
	if t.StorageKey == "" {
		return &ValidationError{Field: "storage_key", Reason: "must not be empty"}
	}
	return nil
}

// NewSingle creates a PENDING single-upload session bound to the given
// presigned URL. The idempotency guard around duplicate keys lives in
// the application layer; the key itself is required here.
func NewSingle(
	idempotencyKey string,
	tenantID, organizationID int64,
	fm FileMeta,
	target StorageTarget,
	presignedURL string,
	ttl time.Duration,
	now time.Time,
) (*Single, error) {
	if idempotencyKey == "" {
		return nil, &ValidationError{Field: "idempotency_key", Reason: "must not be empty"}
	}
	if presignedURL == "" {
		return nil, &ValidationError{Field: "presigned_url", Reason: "must not be empty"}
	}
	if ttl <= 0 {
		return nil, &ValidationError{Field: "ttl", Reason: "must be positive"}
	}
	if err := validateFileMeta(fm); err != nil {
		return nil, err
	}
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	return &Single{
		Meta: Meta{
			ID:             newID(),
			TenantID:       tenantID,
			OrganizationID: organizationID,
			FileMeta:       fm,
			StorageTarget:  target,
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
			ExpiresAt:      now.Add(ttl),
		},
		IdempotencyKey: idempotencyKey,
		PresignedURL:   presignedURL,
	}, nil
}

// NewMultipart creates a PENDING multipart session bound to the remote
// upload id. Initiation has no idempotency key: the remote multipart
// upload is not safely retryable at this layer, callers dedupe upstream.
func NewMultipart(
	tenantID, organizationID int64,
	fm FileMeta,
	target StorageTarget,
	uploadID string,
	totalParts int,
	partSize int64,
	ttl time.Duration,
	now time.Time,
) (*Multipart, error) {
	if uploadID == "" {
		return nil, &ValidationError{Field: "upload_id", Reason: "must not be empty"}
	}
	if totalParts < 1 {
		return nil, &ValidationError{Field: "total_parts", Reason: "must be at least 1"}
	}
	if partSize <= 0 {
		return nil, &ValidationError{Field: "part_size", Reason: "must be positive"}
	}
	if ttl <= 0 {
		return nil, &ValidationError{Field: "ttl", Reason: "must be positive"}
	}
	if err := validateFileMeta(fm); err != nil {
		return nil, err
	}
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	return &Multipart{
		Meta: Meta{
			ID:             newID(),
			TenantID:       tenantID,
			OrganizationID: organizationID,
			FileMeta:       fm,
			StorageTarget:  target,
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
			ExpiresAt:      now.Add(ttl),
		},
		UploadID:   uploadID,
		TotalParts: totalParts,
		PartSize:   partSize,
	}, nil
}

func (m *Meta) SessionID() uuid.UUID  { return m.ID }
func (m *Meta) CurrentStatus() Status { return m.Status }
func (m *Meta) Expiry() time.Time     { return m.ExpiresAt }

func (m *Meta) IsExpired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

// guardActive fails fast when the session is terminal or past its
// expiry deadline, leaving the aggregate unchanged.
func (m *Meta) guardActive(op string, now time.Time) error {
	if !m.Status.Active() {
		return &ConflictError{Current: m.Status, Attempted: op}
	}
	if m.IsExpired(now) {
		return &ExpiredError{ExpiresAt: m.ExpiresAt}
	}
	return nil
}

// Cancel is a one-way transition out of any active state. A session
// observed past its deadline cannot be cancelled; the expiry sweep is
// the only writer of EXPIRED.
func (m *Meta) Cancel(now time.Time) error {
	if err := m.guardActive("cancel", now); err != nil {
		return err
	}
	m.Status = StatusCancelled
	m.UpdatedAt = now
	return nil
}

// MarkExpired transitions an abandoned session to EXPIRED. Reserved
// for the expiry sweep.
func (m *Meta) MarkExpired(now time.Time) error {
	if !m.Status.Active() {
		return &ConflictError{Current: m.Status, Attempted: "expire"}
	}
	m.Status = StatusExpired
	m.UpdatedAt = now
	return nil
}

// Fail transitions an active session to FAILED.
func (m *Meta) Fail(now time.Time) error {
	if !m.Status.Active() {
		return &ConflictError{Current: m.Status, Attempted: "fail"}
	}
	m.Status = StatusFailed
	m.UpdatedAt = now
	return nil
}

// Complete finishes a single upload once the client confirms the PUT.
// Legal from PENDING as well: a zero-byte upload never records progress.
func (s *Single) Complete(etag string, now time.Time) (FileReadyFact, error) {
	if etag == "" {
		return FileReadyFact{}, &ValidationError{Field: "etag", Reason: "must not be empty"}
	}
	if err := s.guardActive("complete", now); err != nil {
		return FileReadyFact{}, err
	}
	s.Status = StatusCompleted
	s.ETag = etag
	s.UpdatedAt = now

	return FileReadyFact{
		SessionID:   s.ID,
		Bucket:      s.Bucket,
		StorageKey:  s.StorageKey,
		ETag:        etag,
		ContentType: s.ContentType,
		SizeBytes:   s.SizeBytes,
		CompletedAt: now,
	}, nil
}

// Part returns the recorded completion for partNumber, if any.
func (m *Multipart) Part(partNumber int) (CompletedPart, bool) {
	for _, p := range m.Parts {
		if p.PartNumber == partNumber {
			return p, true
		}
	}
	return CompletedPart{}, false
}

// RecordPart adds a part completion to the ledger. Re-delivery of the
// same part number with an identical tag is accepted as a no-op and
// returns created=false; a different tag is a conflict. The first
// recorded part moves the session to IN_PROGRESS.
func (m *Multipart) RecordPart(partNumber int, etag string, size int64, now time.Time) (CompletedPart, bool, error) {
	if partNumber < 1 || partNumber > m.TotalParts {
		return CompletedPart{}, false, &ValidationError{
			Field:  "part_number",
			Reason: "must be between 1 and " + strconv.Itoa(m.TotalParts),
		}
	}
	if etag == "" {
		return CompletedPart{}, false, &ValidationError{Field: "etag", Reason: "must not be empty"}
	}
	if size <= 0 {
		return CompletedPart{}, false, &ValidationError{Field: "size_bytes", Reason: "must be positive"}
	}
	if err := m.guardActive("record part for", now); err != nil {
		return CompletedPart{}, false, err
	}

	if existing, ok := m.Part(partNumber); ok {
		if existing.ETag == etag {
			return existing, false, nil
		}
		return CompletedPart{}, false, &PartConflictError{
			PartNumber:   partNumber,
			RecordedTag:  existing.ETag,
			AttemptedTag: etag,
		}
	}

	part := CompletedPart{
		PartNumber: partNumber,
		ETag:       etag,
		SizeBytes:  size,
		UploadedAt: now,
	}
	m.Parts = append(m.Parts, part)
	if m.Status == StatusPending {
		m.Status = StatusInProgress
	}
	m.UpdatedAt = now
	return part, true, nil
}

// MissingParts lists the part numbers not yet on the ledger, ascending.
func (m *Multipart) MissingParts() []int {
	seen := make(map[int]bool, len(m.Parts))
	for _, p := range m.Parts {
		seen[p.PartNumber] = true
	}
	var missing []int
	for n := 1; n <= m.TotalParts; n++ {
		if !seen[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

// SortedParts returns the ledger ordered by part number, as required
// by the object-store completion call.
func (m *Multipart) SortedParts() []CompletedPart {
	parts := make([]CompletedPart, len(m.Parts))
	copy(parts, m.Parts)
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts
}

// Complete finishes the multipart session once every declared part is
// recorded and the object store confirmed assembly with finalTag.
func (m *Multipart) Complete(finalTag string, now time.Time) (FileReadyFact, error) {
	if finalTag == "" {
		return FileReadyFact{}, &ValidationError{Field: "etag", Reason: "must not be empty"}
	}
	if err := m.guardActive("complete", now); err != nil {
		return FileReadyFact{}, err
	}
	if missing := m.MissingParts(); len(missing) > 0 {
		return FileReadyFact{}, &IncompleteError{Missing: missing}
	}
	m.Status = StatusCompleted
	m.FinalETag = finalTag
	m.UpdatedAt = now

	return FileReadyFact{
		SessionID:   m.ID,
		Bucket:      m.Bucket,
		StorageKey:  m.StorageKey,
		ETag:        finalTag,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		CompletedAt: now,
	}, nil
}
