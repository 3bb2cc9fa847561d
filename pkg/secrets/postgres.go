package secrets

import (
	"context"
	"errors"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/jackc/pgx/v5"
)

// PostgresStore is the default Store, backed by the tenant-scoped
// user_secrets table. Every access runs through dbx.Pools.WithTenant so
// row-level security scopes it to the caller's own secrets, matching
// every other per-user table in this system.
type PostgresStore struct {
	Pools *dbx.Pools
}

// Get loads the stored token for (userID, provider), returning
// dbx.ErrNotFound (wrapped) if none exists.
func (s *PostgresStore) Get(ctx context.Context, userID, provider string) (Token, error) {
	var tok Token
	err := s.Pools.WithTenant(ctx, userID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT value, expires_at FROM user_secrets
			WHERE user_id = $1 AND provider = $2`, userID, provider)
		var expiresAt *time.Time
		if err := row.Scan(&tok.Value, &expiresAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return dbx.ErrNotFound
			}
			return err
		}
		if expiresAt != nil {
			tok.ExpiresAt = *expiresAt
		}
		return nil
	})
	return tok, err
}

// Put upserts the token for (userID, provider).
func (s *PostgresStore) Put(ctx context.Context, userID, provider string, tok Token) error {
	return s.Pools.WithTenant(ctx, userID, func(tx pgx.Tx) error {
		var expiresAt *time.Time
		if !tok.ExpiresAt.IsZero() {
			expiresAt = &tok.ExpiresAt
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_secrets (user_id, provider, value, expires_at, updated_at)
			VALUES ($1,$2,$3,$4,now())
			ON CONFLICT (user_id, provider) DO UPDATE SET
				value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`,
			userID, provider, tok.Value, expiresAt,
		)
		return err
	})
}
