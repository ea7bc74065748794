package services

import (
	"context"
	"errors"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"transfer-manager-api/config"
	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/download"
	"transfer-manager-api/internal/domain/outbox"
)

const downloadKeyPrefix = "downloads"

type DownloadService struct {
	tx       ports.TxRunner
	store    ports.ObjectStore
	fetcher  ports.RemoteFetcher
	sweep    config.Sweep
	log      *zap.Logger
	mCounter *prometheus.CounterVec
	now      func() time.Time
}

func NewDownloadService(
	tx ports.TxRunner,
	store ports.ObjectStore,
	fetcher ports.RemoteFetcher,
	sweep config.Sweep,
	log *zap.Logger,
	mCounter *prometheus.CounterVec,
) ports.DownloadService {
	return &DownloadService{
		tx:       tx,
		store:    store,
		fetcher:  fetcher,
		sweep:    sweep,
		log:      log,
		mCounter: mCounter,
		now:      time.Now,
	}
}

// Register records a download request and its pickup fact in one
// transaction. The idempotency guard returns the first-created
// download for a replayed key.
func (ds *DownloadService) Register(ctx context.Context, cmd ports.RegisterDownloadCommand) (*download.Download, error) {
	st := ds.tx.Stores()

	if cmd.IdempotencyKey != "" {
		existing, err := st.Downloads().FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, download.ErrNotFound) {
			return nil, err
		}
	}

	d, fact, err := download.Register(
		cmd.IdempotencyKey,
		cmd.SourceURL,
		cmd.TenantID, cmd.OrganizationID,
		ds.store.Bucket(), downloadKeyPrefix,
		cmd.WebhookURL,
		ds.now(),
	)
	if err != nil {
		return nil, err
	}

	err = ds.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		if err := st.Downloads().Create(ctx, d); err != nil {
			return err
		}
		entry, err := outbox.NewEntry(d.ID, outbox.EventTypeDownloadRegistered, fact, ds.now())
		if err != nil {
			return err
		}
		return st.Outbox().Insert(ctx, entry)
	})
	if err != nil {
		// a concurrent request with the same key won the insert race
		if errors.Is(err, download.ErrDuplicateKey) {
			return st.Downloads().FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
		}
		return nil, err
	}

	ds.mCounter.WithLabelValues("downloads_registered_total").Inc()

	return d, nil
}

func (ds *DownloadService) GetStatus(ctx context.Context, id uuid.UUID) (*download.Download, error) {
	return ds.tx.Stores().Downloads().FindByID(ctx, id)
}

// Process runs one attempt end to end. A download no longer PENDING at
// pickup is a redelivered message and is dropped without error.
func (ds *DownloadService) Process(ctx context.Context, id uuid.UUID) error {
	var d *download.Download
	err := ds.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		fresh, err := st.Downloads().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err = fresh.StartProcessing(ds.now()); err != nil {
			return err
		}
		if err = st.Downloads().Update(ctx, fresh); err != nil {
			return err
		}
		d = fresh
		return nil
	})
	if err != nil {
		var conflict *download.ConflictError
		if errors.As(err, &conflict) {
			ds.log.Info("download not pending at pickup, dropping redelivery",
				zap.String("download_id", id.String()),
				zap.String("status", string(conflict.Current)),
			)
			return nil
		}
		return err
	}

	obj, err := ds.fetcher.Fetch(ctx, d.SourceURL)
	if err != nil {
		return ds.handleFailure(ctx, id, err)
	}

	assetID := uuid.Must(uuid.NewV7())
	key := genStorageKey(d.PathPrefix, d.TenantID, d.OrganizationID, fileNameFromURL(d.SourceURL), obj.ContentType, ds.now())

	etag, err := ds.store.PutObject(ctx, d.Bucket, key, obj.ContentType, obj.Body)
	if err != nil {
		return ds.handleFailure(ctx, id, err)
	}

	asset := download.FileAssetRef{
		AssetID:     assetID,
		Bucket:      d.Bucket,
		StorageKey:  key,
		ContentType: obj.ContentType,
		SizeBytes:   int64(len(obj.Body)),
		ETag:        etag,
	}

	err = ds.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		fresh, err := st.Downloads().FindByID(ctx, id)
		if err != nil {
			return err
		}
		fact, err := fresh.Complete(asset, ds.now())
		if err != nil {
			return err
		}
		if err = st.Downloads().Update(ctx, fresh); err != nil {
			return err
		}
		return ds.insertWebhookEntry(ctx, st, fresh.ID, fact)
	})
	if err != nil {
		return err
	}

	ds.mCounter.WithLabelValues("downloads_completed_total").Inc()

	return nil
}

// handleFailure consumes one retry, or fails the download terminally
// once the ceiling is spent.
func (ds *DownloadService) handleFailure(ctx context.Context, id uuid.UUID, cause error) error {
	now := ds.now()

	err := ds.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
		d, err := st.Downloads().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if d.CanRetry() {
			if err = d.Retry(now); err != nil {
				return err
			}
			if err = st.Downloads().Update(ctx, d); err != nil {
				return err
			}
			// re-emit the pickup fact so a consumer claims the next attempt
			fact := registeredFact(d, now)
			entry, err := outbox.NewEntry(d.ID, outbox.EventTypeDownloadRegistered, fact, now)
			if err != nil {
				return err
			}
			return st.Outbox().Insert(ctx, entry)
		}

		fact, err := d.Fail(cause.Error(), nil, now)
		if err != nil {
			return err
		}
		if err = st.Downloads().Update(ctx, d); err != nil {
			return err
		}
		return ds.insertWebhookEntry(ctx, st, d.ID, fact)
	})
	if err != nil {
		return err
	}

	ds.mCounter.WithLabelValues("download_attempts_failed_total").Inc()

	ds.log.Warn("download attempt failed",
		zap.String("download_id", id.String()),
		zap.Error(cause),
	)

	return nil
}

// RetrySweep re-emits pickup facts for PENDING downloads whose retry
// sat unclaimed past the cutoff, covering consumers that died between
// the retry transition and the next delivery.
func (ds *DownloadService) RetrySweep(ctx context.Context) (int, error) {
	now := ds.now()

	stuck, err := ds.tx.Stores().Downloads().ListRetryable(ctx, now.Add(-ds.sweep.RetryAfter), ds.sweep.RetryBatch)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, d := range stuck {
		err = ds.tx.WithinTx(ctx, func(ctx context.Context, st ports.Stores) error {
			fresh, err := st.Downloads().FindByID(ctx, d.ID)
			if err != nil {
				return err
			}
			if fresh.Status != download.StatusPending {
				return nil
			}
			fresh.UpdatedAt = now
			if err = st.Downloads().Update(ctx, fresh); err != nil {
				return err
			}
			entry, err := outbox.NewEntry(fresh.ID, outbox.EventTypeDownloadRegistered, registeredFact(fresh, now), now)
			if err != nil {
				return err
			}
			return st.Outbox().Insert(ctx, entry)
		})
		if err != nil {
			if errors.Is(err, download.ErrStaleVersion) {
				continue
			}
			ds.log.Error("retry sweep failed for download",
				zap.String("download_id", d.ID.String()),
				zap.Error(err),
			)
			continue
		}
		swept++
	}

	return swept, nil
}

func (ds *DownloadService) insertWebhookEntry(ctx context.Context, st ports.Stores, ownerID uuid.UUID, fact *download.WebhookFact) error {
	if fact == nil {
		return nil
	}
	entry, err := outbox.NewEntry(ownerID, outbox.EventTypeWebhook, fact, ds.now())
	if err != nil {
		return err
	}
	return st.Outbox().Insert(ctx, entry)
}

func registeredFact(d *download.Download, now time.Time) download.RegisteredFact {
	return download.RegisteredFact{
		DownloadID:     d.ID,
		SourceURL:      d.SourceURL,
		TenantID:       d.TenantID,
		OrganizationID: d.OrganizationID,
		WebhookURL:     d.WebhookURL,
		RegisteredAt:   now,
	}
}

func fileNameFromURL(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "file"
	}
	return path.Base(u.Path)
}
