package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	isFlaggedOriginSQL = `SELECT EXISTS (SELECT 1 FROM flagged_origins WHERE addr = $1)`

	upsertFlaggedOriginSQL = `INSERT INTO flagged_origins (addr, reason) VALUES ($1, $2)
		ON CONFLICT (addr) DO UPDATE SET reason = EXCLUDED.reason`
)

var _ order.FraudChecker = (*FraudRepository)(nil)

// FraudRepository answers flagged-origin lookups against the list maintained
// by cmd/fraudlist-ingest.
type FraudRepository struct {
	pool *pgxpool.Pool
}

// NewFraudRepository returns a FraudRepository that uses the given pool.
func NewFraudRepository(pool *pgxpool.Pool) *FraudRepository {
	return &FraudRepository{pool: pool}
}

// IsFlagged reports whether the origin address is on the flag list.
func (r *FraudRepository) IsFlagged(ctx context.Context, originAddr string) (bool, error) {
	var flagged bool
	err := r.pool.QueryRow(ctx, isFlaggedOriginSQL, originAddr).Scan(&flagged)
	if err != nil {
		return false, fmt.Errorf("checking flagged origin: %w", err)
	}
	return flagged, nil
}

// Upsert adds an origin to the flag list. Used by the ingest tool.
func (r *FraudRepository) Upsert(ctx context.Context, addr, reason string) error {
	_, err := r.pool.Exec(ctx, upsertFlaggedOriginSQL, addr, reason)
	if err != nil {
		return fmt.Errorf("upserting flagged origin %q: %w", addr, err)
	}
	return nil
}
