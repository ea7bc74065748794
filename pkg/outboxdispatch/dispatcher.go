// Package outboxdispatch drains the transactional outbox: it claims
// pending entries under a lease, hands each to the deliverer registered
// for its event type, and records the outcome per entry.
package outboxdispatch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"transfer-manager-api/internal/domain/outbox"
)

// Deliverer performs one delivery attempt for a claimed entry.
type Deliverer interface {
	Deliver(ctx context.Context, e *outbox.Entry) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, e *outbox.Entry) error

func (f DelivererFunc) Deliver(ctx context.Context, e *outbox.Entry) error { return f(ctx, e) }

type Config struct {
	Interval       time.Duration
	Batch          int
	Lease          time.Duration
	AttemptTimeout time.Duration
}

type Dispatcher struct {
	repo     outbox.Repository
	routes   map[outbox.EventType]Deliverer
	owner    string
	cfg      Config
	log      *zap.Logger
	mCounter *prometheus.CounterVec
	now      func() time.Time
}

func New(
	repo outbox.Repository,
	routes map[outbox.EventType]Deliverer,
	cfg Config,
	log *zap.Logger,
	mCounter *prometheus.CounterVec,
) *Dispatcher {
	host, _ := os.Hostname()
	return &Dispatcher{
		repo:     repo,
		routes:   routes,
		owner:    fmt.Sprintf("%s-%s", host, uuid.Must(uuid.NewV7())),
		cfg:      cfg,
		log:      log,
		mCounter: mCounter,
		now:      time.Now,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("starting outbox dispatcher", zap.String("owner", d.owner))

	defer func() {
		d.log.Info("outbox dispatcher gracefully stopped")
	}()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := d.DispatchOnce(ctx); err != nil {
				// alert
				d.log.Error("outbox dispatch round failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// DispatchOnce claims one batch and attempts every entry in it. One
// failing entry never blocks the rest of the batch.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (sent, failed int, err error) {
	entries, err := d.repo.Claim(ctx, d.owner, d.cfg.Lease, d.cfg.Batch, d.now())
	if err != nil {
		return 0, 0, err
	}

	for _, e := range entries {
		if d.attempt(ctx, e) {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed, nil
}

func (d *Dispatcher) attempt(ctx context.Context, e *outbox.Entry) bool {
	deliverer, ok := d.routes[e.EventType]
	if !ok {
		d.recordFailure(ctx, e, fmt.Errorf("no deliverer for event type %s", e.EventType))
		return false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	err := deliverer.Deliver(attemptCtx, e)
	cancel()

	if err != nil {
		d.recordFailure(ctx, e, err)
		return false
	}

	e.MarkSent(d.now())
	if err = d.repo.MarkSent(ctx, e); err != nil {
		// delivered but not recorded: the entry will be re-delivered
		// after the lease lapses, consumers must tolerate duplicates
		d.log.Error("outbox mark-sent failed after delivery",
			zap.String("entry_id", e.ID.String()),
			zap.Error(err),
		)
		return false
	}

	d.mCounter.WithLabelValues(string(e.EventType), "sent").Inc()

	return true
}

// ReopenFailed returns a FAILED entry to PENDING so the next tick picks
// it up with a fresh retry budget. Operator reconciliation path.
func (d *Dispatcher) ReopenFailed(ctx context.Context, id uuid.UUID) error {
	e, err := d.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err = e.Reopen(d.now()); err != nil {
		return err
	}
	if err = d.repo.Reopen(ctx, e); err != nil {
		return err
	}

	d.log.Info("outbox entry reopened",
		zap.String("entry_id", e.ID.String()),
		zap.String("event_type", string(e.EventType)),
	)

	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, e *outbox.Entry, cause error) {
	e.RecordFailure(cause.Error(), d.now())
	if err := d.repo.RecordFailure(ctx, e); err != nil {
		d.log.Error("outbox failure record failed",
			zap.String("entry_id", e.ID.String()),
			zap.Error(err),
		)
		return
	}

	result := "retry"
	if e.Status == outbox.StatusFailed {
		result = "failed"
	}
	d.mCounter.WithLabelValues(string(e.EventType), result).Inc()

	d.log.Warn("outbox delivery attempt failed",
		zap.String("entry_id", e.ID.String()),
		zap.String("event_type", string(e.EventType)),
		zap.Int("retry_count", e.RetryCount),
		zap.String("status", string(e.Status)),
		zap.Error(cause),
	)
}
