package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"transfer-manager-api/config"
	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/domain/session"
)

const uploadKeyPrefix = "uploads"

type UploadService struct {
	tx         ports.TxRunner
	store      ports.ObjectStore
	cfg        config.Upload
	sweepBatch int
	log        *zap.Logger
	mCounter   *prometheus.CounterVec
	now        func() time.Time
}

func NewUploadService(
	tx ports.TxRunner,
	store ports.ObjectStore,
	cfg config.Upload,
	sweepBatch int,
	log *zap.Logger,
	mCounter *prometheus.CounterVec,
) ports.UploadService {
	return &UploadService{
		tx:         tx,
		store:      store,
		cfg:        cfg,
		sweepBatch: sweepBatch,
		log:        log,
		mCounter:   mCounter,
		now:        time.Now,
	}
}

// InitiateSingle opens a single-upload session behind the idempotency
// guard: the same key always returns the first-created session, with
// its original presigned URL, no matter how often the call is retried.
func (us *UploadService) InitiateSingle(ctx context.Context, cmd ports.InitiateSingleCommand) (*session.Single, error) {
	st := us.tx.Stores()

	if cmd.IdempotencyKey != "" {
		existing, err := st.Sessions().FindSingleByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}

	now := us.now()
	key := genStorageKey(uploadKeyPrefix, cmd.TenantID, cmd.OrganizationID, cmd.FileName, cmd.ContentType, now)

	presignedURL, err := us.store.PresignPutURL(ctx, us.store.Bucket(), key, us.cfg.PresignTTL)
	if err != nil {
		return nil, err
	}

	s, err := session.NewSingle(
		cmd.IdempotencyKey,
		cmd.TenantID, cmd.OrganizationID,
		session.FileMeta{FileName: cmd.FileName, ContentType: cmd.ContentType, SizeBytes: cmd.SizeBytes},
		session.StorageTarget{Bucket: us.store.Bucket(), StorageKey: key},
		presignedURL,
		us.cfg.PresignTTL,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err = st.Sessions().CreateSingle(ctx, s); err != nil {
		// a concurrent request with the same key won the insert race
		if errors.Is(err, session.ErrDuplicateKey) {
			return st.Sessions().FindSingleByIdempotencyKey(ctx, cmd.IdempotencyKey)
		}
		return nil, err
	}

	us.mCounter.WithLabelValues("single_sessions_initiated_total").Inc()

	return s, nil
}

// InitiateMultipart opens a multipart session bound to a fresh remote
// upload id. No idempotency key here: the remote initiation is not
// safely retryable, callers dedupe upstream.
func (us *UploadService) InitiateMultipart(ctx context.Context, cmd ports.InitiateMultipartCommand) (*session.Multipart, error) {
	if cmd.TotalParts > us.cfg.MaxParts {
		return nil, &session.ValidationError{Field: "total_parts", Reason: "exceeds the allowed maximum"}
	}

	now := us.now()
	key := genStorageKey(uploadKeyPrefix, cmd.TenantID, cmd.OrganizationID, cmd.FileName, cmd.ContentType, now)

	uploadID, err := us.store.CreateMultipartUpload(ctx, us.store.Bucket(), key, cmd.ContentType)
	if err != nil {
		return nil, err
	}

	m, err := session.NewMultipart(
		cmd.TenantID, cmd.OrganizationID,
		session.FileMeta{FileName: cmd.FileName, ContentType: cmd.ContentType, SizeBytes: cmd.SizeBytes},
		session.StorageTarget{Bucket: us.store.Bucket(), StorageKey: key},
		uploadID,
		cmd.TotalParts,
		cmd.PartSize,
		us.cfg.MultipartTTL,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err = us.tx.Stores().Sessions().CreateMultipart(ctx, m); err != nil {
		return nil, err
	}

	us.mCounter.WithLabelValues("multipart_sessions_initiated_total").Inc()

	return m, nil
}

// RecordPart appends one part completion to the ledger. Redelivery of
// an already-recorded part with the same tag is a no-op returning the
// recorded entry.
func (us *UploadService) RecordPart(ctx context.Context, cmd ports.RecordPartCommand) (session.CompletedPart, error) {
	m, err := us.tx.Stores().Sessions().FindMultipartByID(ctx, cmd.SessionID)
	if err != nil {
		return session.CompletedPart{}, err
	}

	part, created, err := m.RecordPart(cmd.PartNumber, cmd.ETag, cmd.SizeBytes, us.now())
	if err != nil {
		return session.CompletedPart{}, err
	}
	if !created {
		return part, nil
	}

	err = us.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		if err := st.Sessions().AddCompletedPart(ctx, cmd.SessionID, part); err != nil {
			return err
		}
		return st.Sessions().UpdateMultipart(ctx, m)
	})
	if err != nil {
		var conflict *session.PartConflictError
		if errors.As(err, &conflict) {
			// a concurrent redelivery inserted first; identical tags agree
			recorded, findErr := us.tx.Stores().Sessions().FindMultipartByID(ctx, cmd.SessionID)
			if findErr == nil {
				if p, ok := recorded.Part(cmd.PartNumber); ok && p.ETag == cmd.ETag {
					return p, nil
				}
			}
		}
		return session.CompletedPart{}, err
	}

	us.mCounter.WithLabelValues("parts_recorded_total").Inc()

	return part, nil
}

// Complete finishes whichever variant owns the session id.
func (us *UploadService) Complete(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error) {
	s, err := us.tx.Stores().Sessions().FindSingleByID(ctx, sessionID)
	if err == nil {
		return us.completeSingle(ctx, s.ID, etag)
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	return us.completeMultipart(ctx, sessionID)
}

func (us *UploadService) completeSingle(ctx context.Context, sessionID uuid.UUID, etag string) (*ports.SessionView, error) {
	var view *ports.SessionView
	err := us.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		s, err := st.Sessions().FindSingleByID(ctx, sessionID)
		if err != nil {
			return err
		}

		fact, err := s.Complete(etag, us.now())
		if err != nil {
			return err
		}
		if err = st.Sessions().UpdateSingle(ctx, s); err != nil {
			return err
		}

		entry, err := outbox.NewEntry(s.ID, outbox.EventTypeFileReady, fact, us.now())
		if err != nil {
			return err
		}
		if err = st.Outbox().Insert(ctx, entry); err != nil {
			return err
		}

		view = singleView(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	us.mCounter.WithLabelValues("single_sessions_completed_total").Inc()

	return view, nil
}

func (us *UploadService) completeMultipart(ctx context.Context, sessionID uuid.UUID) (*ports.SessionView, error) {
	m, err := us.tx.Stores().Sessions().FindMultipartByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// remote assembly is expensive, reject illegal completions before
	// touching the object store
	now := us.now()
	if !m.Status.Active() {
		return nil, &session.ConflictError{Current: m.Status, Attempted: "complete"}
	}
	if m.IsExpired(now) {
		return nil, &session.ExpiredError{ExpiresAt: m.ExpiresAt}
	}
	if missing := m.MissingParts(); len(missing) > 0 {
		return nil, &session.IncompleteError{Missing: missing}
	}

	finalTag, err := us.store.CompleteMultipartUpload(ctx, m.Bucket, m.StorageKey, m.UploadID, m.SortedParts())
	if err != nil {
		return nil, err
	}

	var view *ports.SessionView
	err = us.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		fresh, err := st.Sessions().FindMultipartByID(ctx, sessionID)
		if err != nil {
			return err
		}

		fact, err := fresh.Complete(finalTag, us.now())
		if err != nil {
			return err
		}
		if err = st.Sessions().UpdateMultipart(ctx, fresh); err != nil {
			return err
		}

		entry, err := outbox.NewEntry(fresh.ID, outbox.EventTypeFileReady, fact, us.now())
		if err != nil {
			return err
		}
		if err = st.Outbox().Insert(ctx, entry); err != nil {
			return err
		}

		view = multipartView(fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}

	us.mCounter.WithLabelValues("multipart_sessions_completed_total").Inc()

	return view, nil
}

// Cancel aborts an active session of either variant. For multipart the
// remote upload is aborted after commit, best effort: an orphaned
// remote upload costs storage, a cancelled session with live remote
// state costs correctness.
func (us *UploadService) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	_, err := us.tx.Stores().Sessions().FindSingleByID(ctx, sessionID)
	if err == nil {
		return us.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
			s, err := st.Sessions().FindSingleByID(ctx, sessionID)
			if err != nil {
				return err
			}
			if err = s.Cancel(us.now()); err != nil {
				return err
			}
			return st.Sessions().UpdateSingle(ctx, s)
		})
	}
	if !errors.Is(err, session.ErrNotFound) {
		return err
	}

	var cancelled *session.Multipart
	err = us.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		m, err := st.Sessions().FindMultipartByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if err = m.Cancel(us.now()); err != nil {
			return err
		}
		if err = st.Sessions().UpdateMultipart(ctx, m); err != nil {
			return err
		}
		cancelled = m
		return nil
	})
	if err != nil {
		return err
	}

	us.abortRemote(ctx, cancelled)

	return nil
}

func (us *UploadService) abortRemote(ctx context.Context, m *session.Multipart) {
	if err := us.store.AbortMultipartUpload(ctx, m.Bucket, m.StorageKey, m.UploadID); err != nil {
		us.log.Warn("remote multipart abort failed",
			zap.String("session_id", m.ID.String()),
			zap.Error(err),
		)
	}
}

func (us *UploadService) GetStatus(ctx context.Context, sessionID uuid.UUID) (*ports.SessionView, error) {
	st := us.tx.Stores()

	s, err := st.Sessions().FindSingleByID(ctx, sessionID)
	if err == nil {
		return singleView(s), nil
	}
	if !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}

	m, err := st.Sessions().FindMultipartByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return multipartView(m), nil
}

// ExpireSessions sweeps active sessions past their deadline to EXPIRED.
// A stale-version error means another sweeper or a late client write
// got there first; the session is simply skipped this round.
func (us *UploadService) ExpireSessions(ctx context.Context) (int, error) {
	now := us.now()

	overdue, err := us.tx.Stores().Sessions().ListExpired(ctx, now, us.sweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sess := range overdue {
		var aborted *session.Multipart
		err = us.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
			switch sess.(type) {
			case *session.Single:
				s, err := st.Sessions().FindSingleByID(ctx, sess.SessionID())
				if err != nil {
					return err
				}
				if err = s.MarkExpired(now); err != nil {
					return err
				}
				return st.Sessions().UpdateSingle(ctx, s)
			case *session.Multipart:
				m, err := st.Sessions().FindMultipartByID(ctx, sess.SessionID())
				if err != nil {
					return err
				}
				if err = m.MarkExpired(now); err != nil {
					return err
				}
				if err = st.Sessions().UpdateMultipart(ctx, m); err != nil {
					return err
				}
				aborted = m
				return nil
			default:
				return nil
			}
		})
		if err != nil {
			if errors.Is(err, session.ErrStaleVersion) {
				continue
			}
			var conflict *session.ConflictError
			if errors.As(err, &conflict) {
				continue
			}
			us.log.Error("expiry sweep failed for session",
				zap.String("session_id", sess.SessionID().String()),
				zap.Error(err),
			)
			continue
		}

		if aborted != nil {
			us.abortRemote(ctx, aborted)
		}
		expired++
	}

	if expired > 0 {
		us.mCounter.WithLabelValues("sessions_expired_total").Add(float64(expired))
	}

	return expired, nil
}

func singleView(s *session.Single) *ports.SessionView {
	return &ports.SessionView{
		SessionID:  s.ID,
		Kind:       "SINGLE",
		Status:     s.Status,
		FileName:   s.FileName,
		Bucket:     s.Bucket,
		StorageKey: s.StorageKey,
		ExpiresAt:  s.ExpiresAt.Unix(),
	}
}

func multipartView(m *session.Multipart) *ports.SessionView {
	return &ports.SessionView{
		SessionID:     m.ID,
		Kind:          "MULTIPART",
		Status:        m.Status,
		FileName:      m.FileName,
		Bucket:        m.Bucket,
		StorageKey:    m.StorageKey,
		PartsRecorded: len(m.Parts),
		TotalParts:    m.TotalParts,
		ExpiresAt:     m.ExpiresAt.Unix(),
	}
}
