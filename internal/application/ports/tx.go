package ports

import (
	"context"

	"transfer-manager-api/internal/domain/download"
	"transfer-manager-api/internal/domain/outbox"
	"transfer-manager-api/internal/domain/session"
)

// Stores vends the repositories bound to one database handle: either
// the shared pool or one open transaction.
type Stores interface {
	Sessions() session.Repository
	Downloads() download.Repository
	Outbox() outbox.Repository
}

// TxRunner is the unit-of-work boundary. WithinTx commits everything
// written through st atomically, or nothing: aggregate mutations and
// their outbox entries can never diverge.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
	// Stores returns repositories bound to the pool, for reads and
	// single-statement writes.
	Stores() Stores
}
