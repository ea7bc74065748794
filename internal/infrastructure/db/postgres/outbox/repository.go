package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	domain "transfer-manager-api/internal/domain/outbox"
)

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

func (r *Repository) Insert(ctx context.Context, e *domain.Entry) error {
	_, err := r.db.Exec(
		ctx,
		Insert,
		e.ID, e.OwnerID, string(e.EventType), e.Payload, string(e.Status), e.RetryCount, e.LastError,
		e.LeaseOwner, e.LeaseUntil, e.CreatedAt, e.UpdatedAt, e.SentAt,
	)
	return err
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	e := new(domain.Entry)
	var eventType, status string
	err := row.Scan(
		&e.ID, &e.OwnerID, &eventType, &e.Payload, &status, &e.RetryCount, &e.LastError,
		&e.LeaseOwner, &e.LeaseUntil, &e.CreatedAt, &e.UpdatedAt, &e.SentAt,
	)
	if err != nil {
		return nil, err
	}
	e.EventType = domain.EventType(eventType)
	e.Status = domain.Status(status)
	return e, nil
}

func (r *Repository) Claim(ctx context.Context, owner string, leaseFor time.Duration, limit int, now time.Time) ([]*domain.Entry, error) {
	rows, err := r.db.Query(ctx, Claim, owner, now.Add(leaseFor), now, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, e)
	}
	return claimed, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, e *domain.Entry) error {
	tag, err := r.db.Exec(ctx, MarkSent, e.ID, string(e.Status), e.SentAt, e.UpdatedAt, e.LeaseOwner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox entry %s: lease lost before mark-sent", e.ID)
	}
	return nil
}

func (r *Repository) RecordFailure(ctx context.Context, e *domain.Entry) error {
	tag, err := r.db.Exec(
		ctx,
		RecordFailure,
		e.ID, string(e.Status), e.RetryCount, e.LastError, e.UpdatedAt, e.LeaseOwner,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox entry %s: lease lost before failure record", e.ID)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, SelectByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *Repository) Reopen(ctx context.Context, e *domain.Entry) error {
	tag, err := r.db.Exec(ctx, Reopen, e.ID, string(e.Status), e.RetryCount, e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
