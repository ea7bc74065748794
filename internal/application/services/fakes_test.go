package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/download"
	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/domain/session"
)

// memStores is an in-memory Stores implementation with the same
// optimistic-concurrency behavior as the postgres repositories.
type memStores struct {
	singles     map[uuid.UUID]*session.Single
	singleByKey map[string]uuid.UUID
	multiparts  map[uuid.UUID]*session.Multipart
	parts       map[uuid.UUID][]session.CompletedPart

	downloads     map[uuid.UUID]*download.Download
	downloadByKey map[string]uuid.UUID

	entries []*outbox.Entry
}

func newMemStores() *memStores {
	return &memStores{
		singles:       make(map[uuid.UUID]*session.Single),
		singleByKey:   make(map[string]uuid.UUID),
		multiparts:    make(map[uuid.UUID]*session.Multipart),
		parts:         make(map[uuid.UUID][]session.CompletedPart),
		downloads:     make(map[uuid.UUID]*download.Download),
		downloadByKey: make(map[string]uuid.UUID),
	}
}

func (m *memStores) Sessions() session.Repository   { return (*memSessionRepo)(m) }
func (m *memStores) Downloads() download.Repository { return (*memDownloadRepo)(m) }
func (m *memStores) Outbox() outbox.Repository      { return (*memOutboxRepo)(m) }

func (m *memStores) entriesOf(eventType outbox.EventType) []*outbox.Entry {
	var out []*outbox.Entry
	for _, e := range m.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeTx runs the transactional closure against the shared stores.
// Rollback is not simulated; tests assert on the error path only.
type fakeTx struct {
	st *memStores
}

func (f *fakeTx) Stores() ports.Stores { return f.st }
func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	return fn(ctx, f.st)
}

type memSessionRepo memStores

func (r *memSessionRepo) CreateSingle(_ context.Context, s *session.Single) error {
	if _, taken := r.singleByKey[s.IdempotencyKey]; taken {
		return session.ErrDuplicateKey
	}
	cp := *s
	cp.Version = 1
	r.singles[s.ID] = &cp
	r.singleByKey[s.IdempotencyKey] = s.ID
	s.Version = 1
	return nil
}

func (r *memSessionRepo) CreateMultipart(_ context.Context, m *session.Multipart) error {
	cp := *m
	cp.Version = 1
	r.multiparts[m.ID] = &cp
	m.Version = 1
	return nil
}

func (r *memSessionRepo) FindSingleByID(_ context.Context, id uuid.UUID) (*session.Single, error) {
	s, ok := r.singles[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) FindSingleByIdempotencyKey(_ context.Context, key string) (*session.Single, error) {
	id, ok := r.singleByKey[key]
	if !ok {
		return nil, session.ErrNotFound
	}
	return r.FindSingleByID(context.Background(), id)
}

func (r *memSessionRepo) FindMultipartByID(_ context.Context, id uuid.UUID) (*session.Multipart, error) {
	m, ok := r.multiparts[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *m
	cp.Parts = append([]session.CompletedPart(nil), r.parts[id]...)
	return &cp, nil
}

func (r *memSessionRepo) UpdateSingle(_ context.Context, s *session.Single) error {
	stored, ok := r.singles[s.ID]
	if !ok || stored.Version != s.Version {
		return session.ErrStaleVersion
	}
	cp := *s
	cp.Version++
	r.singles[s.ID] = &cp
	s.Version++
	return nil
}

func (r *memSessionRepo) UpdateMultipart(_ context.Context, m *session.Multipart) error {
	stored, ok := r.multiparts[m.ID]
	if !ok || stored.Version != m.Version {
		return session.ErrStaleVersion
	}
	cp := *m
	cp.Parts = nil
	cp.Version++
	r.multiparts[m.ID] = &cp
	m.Version++
	return nil
}

func (r *memSessionRepo) AddCompletedPart(_ context.Context, sessionID uuid.UUID, p session.CompletedPart) error {
	for _, existing := range r.parts[sessionID] {
		if existing.PartNumber == p.PartNumber {
			return &session.PartConflictError{
				PartNumber:   p.PartNumber,
				RecordedTag:  existing.ETag,
				AttemptedTag: p.ETag,
			}
		}
	}
	r.parts[sessionID] = append(r.parts[sessionID], p)
	return nil
}

func (r *memSessionRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]session.Session, error) {
	var out []session.Session
	for id, s := range r.singles {
		if s.Status.Active() && now.After(s.ExpiresAt) && len(out) < limit {
			cp, _ := r.FindSingleByID(context.Background(), id)
			out = append(out, cp)
		}
	}
	for id, m := range r.multiparts {
		if m.Status.Active() && now.After(m.ExpiresAt) && len(out) < limit {
			cp, _ := r.FindMultipartByID(context.Background(), id)
			out = append(out, cp)
		}
	}
	return out, nil
}

type memDownloadRepo memStores

func (r *memDownloadRepo) Create(_ context.Context, d *download.Download) error {
	if _, taken := r.downloadByKey[d.IdempotencyKey]; taken {
		return download.ErrDuplicateKey
	}
	cp := *d
	cp.Version = 1
	r.downloads[d.ID] = &cp
	r.downloadByKey[d.IdempotencyKey] = d.ID
	d.Version = 1
	return nil
}

func (r *memDownloadRepo) FindByID(_ context.Context, id uuid.UUID) (*download.Download, error) {
	d, ok := r.downloads[id]
	if !ok {
		return nil, download.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDownloadRepo) FindByIdempotencyKey(_ context.Context, key string) (*download.Download, error) {
	id, ok := r.downloadByKey[key]
	if !ok {
		return nil, download.ErrNotFound
	}
	return r.FindByID(context.Background(), id)
}

func (r *memDownloadRepo) Update(_ context.Context, d *download.Download) error {
	stored, ok := r.downloads[d.ID]
	if !ok || stored.Version != d.Version {
		return download.ErrStaleVersion
	}
	cp := *d
	cp.Version++
	r.downloads[d.ID] = &cp
	d.Version++
	return nil
}

func (r *memDownloadRepo) ListRetryable(_ context.Context, cutoff time.Time, limit int) ([]*download.Download, error) {
	var out []*download.Download
	for id, d := range r.downloads {
		if d.Status == download.StatusPending && d.RetryCount > 0 && d.UpdatedAt.Before(cutoff) && len(out) < limit {
			cp, _ := r.FindByID(context.Background(), id)
			out = append(out, cp)
		}
	}
	return out, nil
}

type memOutboxRepo memStores

func (r *memOutboxRepo) Insert(_ context.Context, e *outbox.Entry) error {
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memOutboxRepo) Claim(_ context.Context, owner string, leaseFor time.Duration, limit int, now time.Time) ([]*outbox.Entry, error) {
	var claimed []*outbox.Entry
	for _, e := range r.entries {
		if len(claimed) == limit {
			break
		}
		if e.Status != outbox.StatusPending {
			continue
		}
		if e.LeaseUntil != nil && e.LeaseUntil.After(now) {
			continue
		}
		e.LeaseOwner = owner
		until := now.Add(leaseFor)
		e.LeaseUntil = &until
		cp := *e
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *memOutboxRepo) MarkSent(_ context.Context, e *outbox.Entry) error {
	return r.apply(e)
}

func (r *memOutboxRepo) RecordFailure(_ context.Context, e *outbox.Entry) error {
	return r.apply(e)
}

func (r *memOutboxRepo) apply(e *outbox.Entry) error {
	for i, stored := range r.entries {
		if stored.ID == e.ID {
			cp := *e
			cp.LeaseOwner = ""
			cp.LeaseUntil = nil
			r.entries[i] = &cp
			return nil
		}
	}
	return outbox.ErrNotFound
}

func (r *memOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*outbox.Entry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, outbox.ErrNotFound
}

func (r *memOutboxRepo) Reopen(_ context.Context, e *outbox.Entry) error {
	return r.apply(e)
}

// fakeObjectStore records every call and answers with fixed values.
type fakeObjectStore struct {
	bucket string

	presignCalls  int
	createCalls   int
	completeCalls int
	abortCalls    int
	putCalls      int

	completedParts []session.CompletedPart
	abortedUploads []string
	putKeys        []string

	presignErr  error
	completeErr error
	putErr      error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{bucket: "transfer-uploads"}
}

func (f *fakeObjectStore) PresignPutURL(_ context.Context, _, key string, _ time.Duration) (string, error) {
	f.presignCalls++
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://store.local/" + key + "?sig=abc", nil
}

func (f *fakeObjectStore) CreateMultipartUpload(_ context.Context, _, _, _ string) (string, error) {
	f.createCalls++
	return "remote-upload-1", nil
}

func (f *fakeObjectStore) CompleteMultipartUpload(_ context.Context, _, _, _ string, parts []session.CompletedPart) (string, error) {
	f.completeCalls++
	if f.completeErr != nil {
		return "", f.completeErr
	}
	f.completedParts = parts
	return "final-etag", nil
}

func (f *fakeObjectStore) AbortMultipartUpload(_ context.Context, _, _, uploadID string) error {
	f.abortCalls++
	f.abortedUploads = append(f.abortedUploads, uploadID)
	return nil
}

func (f *fakeObjectStore) PutObject(_ context.Context, _, key, _ string, _ []byte) (string, error) {
	f.putCalls++
	if f.putErr != nil {
		return "", f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return "stored-etag", nil
}

func (f *fakeObjectStore) Bucket() string { return f.bucket }

// fakeFetcher answers Fetch calls from a queue of canned results.
type fetchResult struct {
	obj *ports.FetchedObject
	err error
}

type fakeFetcher struct {
	results []fetchResult
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*ports.FetchedObject, error) {
	f.calls++
	if len(f.results) == 0 {
		return &ports.FetchedObject{Body: []byte("payload"), ContentType: "application/pdf"}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res.obj, res.err
}
