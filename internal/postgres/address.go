package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/address"
)

const (
	createAddressSQL = `INSERT INTO addresses
		(account_id, line1, line2, city, state, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	getAddressSQL = `SELECT id, account_id, line1, line2, city, state, postal_code, country,
		is_default, created_at, updated_at
		FROM addresses WHERE id = $1 AND account_id = $2`

	listAddressesSQL = `SELECT id, account_id, line1, line2, city, state, postal_code, country,
		is_default, created_at, updated_at
		FROM addresses WHERE account_id = $1 ORDER BY id`

	updateAddressSQL = `UPDATE addresses
		SET line1 = $3, line2 = $4, city = $5, state = $6, postal_code = $7,
		    country = $8, is_default = $9, updated_at = now()
		WHERE id = $1 AND account_id = $2`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE, updated_at = now()
		WHERE account_id = $1 AND is_default`

	setDefaultAddressSQL = `UPDATE addresses SET is_default = TRUE, updated_at = now()
		WHERE id = $1 AND account_id = $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1 AND account_id = $2`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL. All
// default-flag writes use the transactional clear-then-set sequence so the
// at-most-one-default invariant holds after every operation.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Create inserts the address. When a.IsDefault is set, the account's existing
// defaults are cleared inside the same transaction before the insert.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create address: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if a.IsDefault {
		if _, err := tx.Exec(ctx, clearDefaultAddressSQL, a.AccountID); err != nil {
			return fmt.Errorf("clearing default addresses: %w", err)
		}
	}

	err = tx.QueryRow(ctx, createAddressSQL,
		a.AccountID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.IsDefault,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating address: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create address: %w", err)
	}
	return nil
}

// GetByID returns the address only when it belongs to accountID.
func (r *AddressRepository) GetByID(ctx context.Context, accountID, id int64) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id, accountID)
	if err != nil {
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	return &a, nil
}

// ListByAccount returns all of the account's addresses.
func (r *AddressRepository) ListByAccount(ctx context.Context, accountID int64) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses for account %d: %w", accountID, err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// Update rewrites the address fields, clearing prior defaults first when the
// update sets the default flag.
func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update address: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if a.IsDefault {
		if _, err := tx.Exec(ctx, clearDefaultAddressSQL, a.AccountID); err != nil {
			return fmt.Errorf("clearing default addresses: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, updateAddressSQL,
		a.ID, a.AccountID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.IsDefault,
	)
	if err != nil {
		return fmt.Errorf("updating address %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update address: %w", err)
	}
	return nil
}

// SetDefault makes the address the account's sole default.
func (r *AddressRepository) SetDefault(ctx context.Context, accountID, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set default address: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, clearDefaultAddressSQL, accountID); err != nil {
		return fmt.Errorf("clearing default addresses: %w", err)
	}

	tag, err := tx.Exec(ctx, setDefaultAddressSQL, id, accountID)
	if err != nil {
		return fmt.Errorf("setting default address %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set default address: %w", err)
	}
	return nil
}

// Delete removes the address. Deleting the current default leaves the account
// with no default; nothing is auto-promoted.
func (r *AddressRepository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, id, accountID)
	if err != nil {
		return fmt.Errorf("deleting address %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.AccountID, &a.Line1, &a.Line2, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
