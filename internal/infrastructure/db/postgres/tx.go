package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/download"
	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/domain/session"
	downloadDB "transfer-manager-api/internal/infrastructure/db/postgres/download"
	outboxDB "transfer-manager-api/internal/infrastructure/db/postgres/outbox"
	sessionDB "transfer-manager-api/internal/infrastructure/db/postgres/session"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx, so
// repositories work the same inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB adds transaction support on top of Querier. *pgxpool.Pool and
// pgxmock's pool both satisfy it.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx runs fn inside one transaction: commit on nil, rollback on
// error. The deferred rollback is a no-op after a successful commit.
func WithTx(ctx context.Context, db DB, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type stores struct {
	sessions  *sessionDB.Repository
	downloads *downloadDB.Repository
	outbox    *outboxDB.Repository
}

func newStores(q Querier) *stores {
	return &stores{
		sessions:  sessionDB.NewRepository(q),
		downloads: downloadDB.NewRepository(q),
		outbox:    outboxDB.NewRepository(q),
	}
}

func (s *stores) Sessions() session.Repository   { return s.sessions }
func (s *stores) Downloads() download.Repository { return s.downloads }
func (s *stores) Outbox() outbox.Repository      { return s.outbox }

// TxManager is the pgx-backed unit of work: aggregate rows and their
// outbox rows commit together or not at all.
type TxManager struct {
	db DB
}

func NewTxManager(db DB) *TxManager { return &TxManager{db: db} }

func (m *TxManager) Stores() ports.Stores { return newStores(m.db) }

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	return WithTx(ctx, m.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newStores(tx))
	})
}
