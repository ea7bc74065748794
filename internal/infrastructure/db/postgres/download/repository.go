package download

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "transfer-manager-api/internal/domain/download"
)

const uniqueViolation = "23505"

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, d *domain.Download) error {
	_, err := r.db.Exec(
		ctx,
		Insert,
		d.ID, d.IdempotencyKey, d.SourceURL, d.TenantID, d.OrganizationID, d.Bucket, d.PathPrefix,
		d.WebhookURL, string(d.Status), d.RetryCount, d.FileAssetID, d.ErrorMessage,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateKey
		}
		return err
	}
	d.Version = 1
	return nil
}

func scanDownload(row pgx.Row) (*Download, error) {
	d := new(Download)
	err := row.Scan(
		&d.ID, &d.IdempotencyKey, &d.SourceURL, &d.TenantID, &d.OrganizationID, &d.Bucket, &d.PathPrefix,
		&d.WebhookURL, &d.Status, &d.RetryCount, &d.FileAssetID, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt, &d.Version,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Download, error) {
	d, err := scanDownload(r.db.QueryRow(ctx, SelectByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return fromDBModel(d), nil
}

func (r *Repository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Download, error) {
	d, err := scanDownload(r.db.QueryRow(ctx, SelectByIdempotencyKey, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return fromDBModel(d), nil
}

func (r *Repository) Update(ctx context.Context, d *domain.Download) error {
	tag, err := r.db.Exec(
		ctx,
		Update,
		d.ID, string(d.Status), d.RetryCount, d.FileAssetID, d.ErrorMessage, d.UpdatedAt, d.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleVersion
	}
	d.Version++
	return nil
}

func (r *Repository) ListRetryable(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Download, error) {
	rows, err := r.db.Query(ctx, SelectRetryable, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Download
	for rows.Next() {
		d := new(Download)
		if err = rows.Scan(
			&d.ID, &d.IdempotencyKey, &d.SourceURL, &d.TenantID, &d.OrganizationID, &d.Bucket, &d.PathPrefix,
			&d.WebhookURL, &d.Status, &d.RetryCount, &d.FileAssetID, &d.ErrorMessage,
			&d.CreatedAt, &d.UpdatedAt, &d.Version,
		); err != nil {
			return nil, err
		}
		out = append(out, fromDBModel(d))
	}
	return out, rows.Err()
}
