package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository backed by a postgres table
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a postgres-backed audit repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Init creates the audit table if it does not exist yet
func (r *PostgresRepository) Init(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS portal_audit_event (
			id UUID PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			email TEXT NOT NULL,
			realm TEXT NOT NULL,
			operation TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS portal_audit_event_email_idx ON portal_audit_event (email, occurred_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize audit table: %w", err)
	}
	return nil
}

// Append stores one event
func (r *PostgresRepository) Append(ctx context.Context, event Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO portal_audit_event (id, occurred_at, email, realm, operation, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.At, event.Email, event.Realm, event.Operation, event.Outcome, event.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// FindByEmail returns events for one email, newest first
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, occurred_at, email, realm, operation, outcome, detail
		FROM portal_audit_event
		WHERE email = $1
		ORDER BY occurred_at DESC`,
		email)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Event])
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit events: %w", err)
	}
	return events, nil
}
