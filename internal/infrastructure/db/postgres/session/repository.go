package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "transfer-manager-api/internal/domain/session"
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

func (r *Repository) CreateSingle(ctx context.Context, s *domain.Single) error {
	_, err := r.db.Exec(
		ctx,
		InsertSingle,
		s.ID, s.IdempotencyKey, s.TenantID, s.OrganizationID,
		s.FileName, s.ContentType, s.SizeBytes,
		s.Bucket, s.StorageKey, s.PresignedURL, s.ETag, string(s.Status),
		s.CreatedAt, s.UpdatedAt, s.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateKey
		}
		return err
	}
	s.Version = 1
	return nil
}

func (r *Repository) CreateMultipart(ctx context.Context, m *domain.Multipart) error {
	_, err := r.db.Exec(
		ctx,
		InsertMultipart,
		m.ID, m.TenantID, m.OrganizationID,
		m.FileName, m.ContentType, m.SizeBytes,
		m.Bucket, m.StorageKey, m.UploadID, m.TotalParts, m.PartSize, m.FinalETag, string(m.Status),
		m.CreatedAt, m.UpdatedAt, m.ExpiresAt,
	)
	if err != nil {
		return err
	}
	m.Version = 1
	return nil
}

func scanSingle(row pgx.Row) (*Single, error) {
	s := new(Single)
	err := row.Scan(
		&s.ID, &s.IdempotencyKey, &s.TenantID, &s.OrganizationID,
		&s.FileName, &s.ContentType, &s.SizeBytes,
		&s.Bucket, &s.StorageKey, &s.PresignedURL, &s.ETag, &s.Status,
		&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt, &s.Version,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) FindSingleByID(ctx context.Context, id uuid.UUID) (*domain.Single, error) {
	s, err := scanSingle(r.db.QueryRow(ctx, SelectSingleByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return fromSingleModel(s), nil
}

func (r *Repository) FindSingleByIdempotencyKey(ctx context.Context, key string) (*domain.Single, error) {
	s, err := scanSingle(r.db.QueryRow(ctx, SelectSingleByIdempotencyKey, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return fromSingleModel(s), nil
}

func (r *Repository) FindMultipartByID(ctx context.Context, id uuid.UUID) (*domain.Multipart, error) {
	m := new(Multipart)
	err := r.db.QueryRow(ctx, SelectMultipartByID, id).Scan(
		&m.ID, &m.TenantID, &m.OrganizationID,
		&m.FileName, &m.ContentType, &m.SizeBytes,
		&m.Bucket, &m.StorageKey, &m.UploadID, &m.TotalParts, &m.PartSize, &m.FinalETag, &m.Status,
		&m.CreatedAt, &m.UpdatedAt, &m.ExpiresAt, &m.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	parts, err := r.listParts(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromMultipartModel(m, parts), nil
}

func (r *Repository) listParts(ctx context.Context, sessionID uuid.UUID) ([]CompletedPart, error) {
	rows, err := r.db.Query(ctx, SelectCompletedParts, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parts []CompletedPart
	for rows.Next() {
		var p CompletedPart
		if err = rows.Scan(&p.SessionID, &p.PartNumber, &p.ETag, &p.SizeBytes, &p.UploadedAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (r *Repository) UpdateSingle(ctx context.Context, s *domain.Single) error {
	tag, err := r.db.Exec(ctx, UpdateSingle, s.ID, string(s.Status), s.ETag, s.UpdatedAt, s.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleVersion
	}
	s.Version++
	return nil
}

func (r *Repository) UpdateMultipart(ctx context.Context, m *domain.Multipart) error {
	tag, err := r.db.Exec(ctx, UpdateMultipart, m.ID, string(m.Status), m.FinalETag, m.UpdatedAt, m.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleVersion
	}
	m.Version++
	return nil
}

func (r *Repository) AddCompletedPart(ctx context.Context, sessionID uuid.UUID, p domain.CompletedPart) error {
	_, err := r.db.Exec(ctx, InsertCompletedPart, sessionID, p.PartNumber, p.ETag, p.SizeBytes, p.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// a concurrent writer got there first with this part number
			return &domain.PartConflictError{PartNumber: p.PartNumber, AttemptedTag: p.ETag}
		}
		return err
	}
	return nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Session, error) {
	var out []domain.Session

	rows, err := r.db.Query(ctx, SelectExpiredSingles, now, limit)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		s := new(Single)
		if err = rows.Scan(
			&s.ID, &s.IdempotencyKey, &s.TenantID, &s.OrganizationID,
			&s.FileName, &s.ContentType, &s.SizeBytes,
			&s.Bucket, &s.StorageKey, &s.PresignedURL, &s.ETag, &s.Status,
			&s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt, &s.Version,
		); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, fromSingleModel(s))
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, SelectExpiredMultiparts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m := new(Multipart)
		if err = rows.Scan(
			&m.ID, &m.TenantID, &m.OrganizationID,
			&m.FileName, &m.ContentType, &m.SizeBytes,
			&m.Bucket, &m.StorageKey, &m.UploadID, &m.TotalParts, &m.PartSize, &m.FinalETag, &m.Status,
			&m.CreatedAt, &m.UpdatedAt, &m.ExpiresAt, &m.Version,
		); err != nil {
			return nil, err
		}
		out = append(out, fromMultipartModel(m, nil))
	}
	return out, rows.Err()
}
