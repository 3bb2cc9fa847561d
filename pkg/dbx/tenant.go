package dbx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// WithTenant acquires a connection from the tenant pool, pins
// app.current_user_id for the duration of a transaction via SET LOCAL,
// and runs fn inside that transaction. Every statement issued through
// tx is subject to the row-level-security policies scoped to userID.
//
// SET LOCAL only takes effect inside a transaction block, which is why
// this always opens one rather than running on a bare connection.
func (p *Pools) WithTenant(ctx context.Context, userID string, fn func(tx pgx.Tx) error) error {
	if userID == "" {
		return fmt.Errorf("dbx: WithTenant requires a non-empty userID")
	}

	tx, err := p.TenantPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tenant tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_user_id', $1, true)", userID); err != nil {
		return fmt.Errorf("pin tenant: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tenant tx: %w", err)
	}
	return nil
}

// WithAdmin runs fn inside a transaction on the admin pool, which is
// not subject to row-level security. Used by the incident pipeline and
// background workers that operate across tenants or before a user_id
// is known (e.g. webhook ingestion resolves user_id from the payload
// itself, not from an authenticated session).
func (p *Pools) WithAdmin(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.AdminPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin admin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit admin tx: %w", err)
	}
	return nil
}
