package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

const (
	getSessionByHashSQL = `SELECT token_hash, account_id, expires_at
		FROM sessions WHERE token_hash = $1`

	upsertAccountSQL = `INSERT INTO accounts (email, name) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	upsertSessionSQL = `INSERT INTO sessions (token_hash, account_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET expires_at = EXCLUDED.expires_at`
)

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository provides session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up a session by its HMAC-SHA256 token hash. Expiry is
// checked by the caller, not here.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	var s auth.Session
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(
		&s.TokenHash, &s.AccountID, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, fmt.Errorf("finding session by hash: %w", err)
	}
	return &s, nil
}

// UpsertAccountSession creates (or refreshes) an account and a session for
// it. Used by the seed tool only.
func (r *SessionRepository) UpsertAccountSession(ctx context.Context, email, name string, s *auth.Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed session: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var accountID int64
	if err := tx.QueryRow(ctx, upsertAccountSQL, email, name).Scan(&accountID); err != nil {
		return fmt.Errorf("upserting account %q: %w", email, err)
	}

	if _, err := tx.Exec(ctx, upsertSessionSQL, s.TokenHash, accountID, s.ExpiresAt); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	s.AccountID = accountID

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed session: %w", err)
	}
	return nil
}
