package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"transfer-manager-api/config"
	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/domain/session"
)

func testCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counters"}, []string{"result"})
}

func newUploadFixture(t *testing.T) (*UploadService, *memStores, *fakeObjectStore) {
	t.Helper()
	st := newMemStores()
	store := newFakeObjectStore()
	svc := NewUploadService(
		&fakeTx{st: st},
		store,
		config.Upload{PresignTTL: 15 * time.Minute, MultipartTTL: 6 * time.Hour, MaxParts: 100},
		50,
		zap.NewNop(),
		testCounter(),
	).(*UploadService)
	return svc, st, store
}

func TestInitiateSingle_IdempotentReplay(t *testing.T) {
	svc, st, store := newUploadFixture(t)
	ctx := context.Background()

	cmd := ports.InitiateSingleCommand{
		IdempotencyKey: "client-key-1",
		TenantID:       1, OrganizationID: 2,
		FileName:  "report.pdf",
		SizeBytes: 1024,
	}

	first, err := svc.InitiateSingle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPending, first.Status)
	assert.NotEmpty(t, first.PresignedURL)
	assert.Equal(t, store.Bucket(), first.Bucket)

	replay, err := svc.InitiateSingle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, first.PresignedURL, replay.PresignedURL)

	assert.Equal(t, 1, store.presignCalls, "replay must not mint a second URL")
	assert.Len(t, st.singles, 1)
}

func TestInitiateSingle_ValidationRejected(t *testing.T) {
	svc, st, _ := newUploadFixture(t)

	_, err := svc.InitiateSingle(context.Background(), ports.InitiateSingleCommand{
		IdempotencyKey: "k",
		FileName:       "",
	})

	var vErr *session.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, st.singles)
}

func TestInitiateMultipart_PartCeiling(t *testing.T) {
	svc, _, _ := newUploadFixture(t)

	_, err := svc.InitiateMultipart(context.Background(), ports.InitiateMultipartCommand{
		FileName:   "huge.iso",
		SizeBytes:  1 << 30,
		TotalParts: 101,
		PartSize:   1 << 20,
	})

	var vErr *session.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "total_parts", vErr.Field)
}

func TestMultipartFlow_RecordCompleteAndOutbox(t *testing.T) {
	svc, st, store := newUploadFixture(t)
	ctx := context.Background()

	m, err := svc.InitiateMultipart(ctx, ports.InitiateMultipartCommand{
		TenantID: 1, OrganizationID: 2,
		FileName:   "archive.tar",
		SizeBytes:  3 << 20,
		TotalParts: 3,
		PartSize:   1 << 20,
	})
	require.NoError(t, err)
	require.Equal(t, "remote-upload-1", m.UploadID)

	for _, n := range []int{2, 1} {
		_, err = svc.RecordPart(ctx, ports.RecordPartCommand{
			SessionID: m.ID, PartNumber: n, ETag: "etag-part", SizeBytes: 1 << 20,
		})
		require.NoError(t, err)
	}

	// redelivery of a recorded part is a no-op
	replayed, err := svc.RecordPart(ctx, ports.RecordPartCommand{
		SessionID: m.ID, PartNumber: 2, ETag: "etag-part", SizeBytes: 1 << 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, replayed.PartNumber)
	assert.Len(t, st.parts[m.ID], 2)

	// completion is gated on a full ledger
	_, err = svc.Complete(ctx, m.ID, "")
	var iErr *session.IncompleteError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, []int{3}, iErr.Missing)
	assert.Zero(t, store.completeCalls)

	_, err = svc.RecordPart(ctx, ports.RecordPartCommand{
		SessionID: m.ID, PartNumber: 3, ETag: "etag-part", SizeBytes: 1 << 20,
	})
	require.NoError(t, err)

	view, err := svc.Complete(ctx, m.ID, "")
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, view.Status)
	assert.Equal(t, 1, store.completeCalls)
	require.Len(t, store.completedParts, 3)
	assert.Equal(t, 1, store.completedParts[0].PartNumber, "assembly wants parts in ascending order")

	facts := st.entriesOf(outbox.EventTypeFileReady)
	require.Len(t, facts, 1)
	assert.Equal(t, m.ID, facts[0].OwnerID)
	assert.Equal(t, outbox.StatusPending, facts[0].Status)
	assert.Contains(t, string(facts[0].Payload), "final-etag")
}

func TestRecordPart_TagMismatchConflict(t *testing.T) {
	svc, _, _ := newUploadFixture(t)
	ctx := context.Background()

	m, err := svc.InitiateMultipart(ctx, ports.InitiateMultipartCommand{
		FileName: "a.bin", SizeBytes: 10, TotalParts: 2, PartSize: 5,
	})
	require.NoError(t, err)

	_, err = svc.RecordPart(ctx, ports.RecordPartCommand{SessionID: m.ID, PartNumber: 1, ETag: "aaa", SizeBytes: 5})
	require.NoError(t, err)

	_, err = svc.RecordPart(ctx, ports.RecordPartCommand{SessionID: m.ID, PartNumber: 1, ETag: "bbb", SizeBytes: 5})
	var pErr *session.PartConflictError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "aaa", pErr.RecordedTag)
}

func TestCompleteSingle_EmitsFactOnce(t *testing.T) {
	svc, st, _ := newUploadFixture(t)
	ctx := context.Background()

	s, err := svc.InitiateSingle(ctx, ports.InitiateSingleCommand{
		IdempotencyKey: "k-1", FileName: "photo.jpg", SizeBytes: 42,
	})
	require.NoError(t, err)

	view, err := svc.Complete(ctx, s.ID, "confirmed-etag")
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, view.Status)

	require.Len(t, st.entriesOf(outbox.EventTypeFileReady), 1)

	// a second completion is a state conflict, not a second fact
	_, err = svc.Complete(ctx, s.ID, "confirmed-etag")
	var cErr *session.ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Len(t, st.entriesOf(outbox.EventTypeFileReady), 1)
}

func TestCancelMultipart_AbortsRemoteUpload(t *testing.T) {
	svc, st, store := newUploadFixture(t)
	ctx := context.Background()

	m, err := svc.InitiateMultipart(ctx, ports.InitiateMultipartCommand{
		FileName: "a.bin", SizeBytes: 10, TotalParts: 2, PartSize: 5,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, m.ID))

	stored := st.multiparts[m.ID]
	assert.Equal(t, session.StatusCancelled, stored.Status)
	assert.Equal(t, []string{"remote-upload-1"}, store.abortedUploads)
}

func TestCompleteAfterDeadline_RejectedNotExpired(t *testing.T) {
	svc, st, _ := newUploadFixture(t)
	ctx := context.Background()

	s, err := svc.InitiateSingle(ctx, ports.InitiateSingleCommand{
		IdempotencyKey: "k-late", FileName: "slow.bin", SizeBytes: 10,
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return s.ExpiresAt.Add(time.Minute) }

	_, err = svc.Complete(ctx, s.ID, "etag")
	var eErr *session.ExpiredError
	require.ErrorAs(t, err, &eErr)

	// the deadline alone does not move state, only the sweep does
	assert.Equal(t, session.StatusPending, st.singles[s.ID].Status)
}

func TestExpireSessions_SweepsBothVariants(t *testing.T) {
	svc, st, store := newUploadFixture(t)
	ctx := context.Background()

	s, err := svc.InitiateSingle(ctx, ports.InitiateSingleCommand{
		IdempotencyKey: "k-exp", FileName: "one.bin", SizeBytes: 1,
	})
	require.NoError(t, err)
	m, err := svc.InitiateMultipart(ctx, ports.InitiateMultipartCommand{
		FileName: "two.bin", SizeBytes: 2, TotalParts: 1, PartSize: 2,
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return m.ExpiresAt.Add(time.Hour) }

	expired, err := svc.ExpireSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, session.StatusExpired, st.singles[s.ID].Status)
	assert.Equal(t, session.StatusExpired, st.multiparts[m.ID].Status)
	assert.Equal(t, 1, store.abortCalls)

	// second sweep finds nothing
	expired, err = svc.ExpireSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
}
