package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/albapepper/tour-bundler/internal/config"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

const schema = `
CREATE TABLE IF NOT EXISTS ` + config.NotificationsTable + ` (
	id                   BIGSERIAL PRIMARY KEY,
	run_id               UUID        NOT NULL,
	policy               TEXT        NOT NULL,
	receiver_id          TEXT        NOT NULL,
	notification_sent    TIMESTAMPTZ NOT NULL,
	timestamp_first_tour TIMESTAMPTZ NOT NULL,
	tours                INTEGER     NOT NULL,
	message              TEXT        NOT NULL,
	max_await_seconds    BIGINT      NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS tour_notifications_run_idx ON ` + config.NotificationsTable + ` (run_id);`

// Columns copied per record, in schema order.
var recordColumns = []string{
	"run_id", "policy", "receiver_id", "notification_sent",
	"timestamp_first_tour", "tours", "message", "max_await_seconds",
}

// EnsureSchema creates the notifications table if it is missing.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertRecords persists one run's records in a single COPY, inside a
// transaction so a failed run leaves no rows behind.
func (p *Pool) InsertRecords(ctx context.Context, runID uuid.UUID, policy notifications.Policy, records []notifications.Record) (int64, error) {
	tx, err := p.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{config.NotificationsTable},
		recordColumns,
		pgx.CopyFromRows(recordRows(runID, policy, records)),
	)
	if err != nil {
		return 0, fmt.Errorf("copy notifications: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// CountRun returns how many records a run stored.
func (p *Pool) CountRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	var n int64
	if err := p.QueryRow(ctx,
		"SELECT count(*) FROM "+config.NotificationsTable+" WHERE run_id = $1", runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count run: %w", err)
	}
	return n, nil
}

func recordRows(runID uuid.UUID, policy notifications.Policy, records []notifications.Record) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			runID, string(policy), r.ReceiverID, r.NotificationSent,
			r.TimestampFirstTour, r.Tours, r.Message, int64(r.MaxAwait.Seconds()),
		})
	}
	return rows
}
