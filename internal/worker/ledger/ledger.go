// Package ledger records per-document sync outcomes in PostgreSQL. The
// ledger is an audit trail, not a correctness mechanism: checkpointing
// alone drives resumption, and a nil ledger disables recording entirely.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Mongo-Vector-Sync-Platform/pkg/postgres"
)

// Delivery outcomes.
const (
	StatusSynced = "SYNCED"
	StatusFailed = "FAILED"
)

// Ledger writes delivery outcomes to the sync_deliveries table.
type Ledger struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Ledger and ensures its table exists.
func New(ctx context.Context, db *postgres.Client) (*Ledger, error) {
	_, err := db.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sync_deliveries (
			doc_id      TEXT PRIMARY KEY,
			position    TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			attempts    INT  NOT NULL DEFAULT 1,
			last_error  TEXT NOT NULL DEFAULT '',
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		db:     db,
		logger: logger.WithComponent("sync-ledger"),
	}, nil
}

// Record upserts the outcome of one delivery. Ledger failures are logged,
// never propagated: a broken audit trail must not stall the sync loop.
// Calling Record on a nil Ledger is a no-op.
func (l *Ledger) Record(ctx context.Context, docID, position, status string, attempts int, lastError string) {
	if l == nil {
		return
	}
	_, err := l.db.DB.ExecContext(ctx, `
		INSERT INTO sync_deliveries (doc_id, position, status, attempts, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (doc_id) DO UPDATE SET
			position = EXCLUDED.position,
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at`,
		docID, position, status, attempts, lastError, time.Now().UTC(),
	)
	if err != nil {
		l.logger.Error("failed to record delivery",
			"doc_id", docID,
			"status", status,
			"error", err,
		)
	}
}
