package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

const (
	createMethodSQL = `INSERT INTO payment_methods
		(account_id, brand, last4, card_holder, expiry_month, expiry_year, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	getMethodSQL = `SELECT id, account_id, brand, last4, card_holder, expiry_month, expiry_year,
		is_default, created_at, updated_at
		FROM payment_methods WHERE id = $1 AND account_id = $2`

	listMethodsSQL = `SELECT id, account_id, brand, last4, card_holder, expiry_month, expiry_year,
		is_default, created_at, updated_at
		FROM payment_methods WHERE account_id = $1 ORDER BY id`

	clearDefaultMethodSQL = `UPDATE payment_methods SET is_default = FALSE, updated_at = now()
		WHERE account_id = $1 AND is_default`

	setDefaultMethodSQL = `UPDATE payment_methods SET is_default = TRUE, updated_at = now()
		WHERE id = $1 AND account_id = $2`

	deleteMethodSQL = `DELETE FROM payment_methods WHERE id = $1 AND account_id = $2`
)

var _ payment.Repository = (*PaymentMethodRepository)(nil)

// PaymentMethodRepository implements payment.Repository backed by PostgreSQL,
// with the same transactional clear-then-set default handling as addresses.
type PaymentMethodRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentMethodRepository returns a PaymentMethodRepository using the pool.
func NewPaymentMethodRepository(pool *pgxpool.Pool) *PaymentMethodRepository {
	return &PaymentMethodRepository{pool: pool}
}

// Create inserts the (already redacted) method, clearing the account's
// existing default first when m.IsDefault is set.
func (r *PaymentMethodRepository) Create(ctx context.Context, m *payment.Method) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create payment method: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if m.IsDefault {
		if _, err := tx.Exec(ctx, clearDefaultMethodSQL, m.AccountID); err != nil {
			return fmt.Errorf("clearing default payment methods: %w", err)
		}
	}

	err = tx.QueryRow(ctx, createMethodSQL,
		m.AccountID, m.Brand, m.Last4, m.CardHolder, m.ExpiryMonth, m.ExpiryYear, m.IsDefault,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating payment method: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create payment method: %w", err)
	}
	return nil
}

// GetByID returns the method only when it belongs to accountID.
func (r *PaymentMethodRepository) GetByID(ctx context.Context, accountID, id int64) (*payment.Method, error) {
	rows, err := r.pool.Query(ctx, getMethodSQL, id, accountID)
	if err != nil {
		return nil, fmt.Errorf("getting payment method %d: %w", id, err)
	}

	m, err := pgx.CollectExactlyOneRow(rows, scanMethod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment method %d: %w", id, err)
	}
	return &m, nil
}

// ListByAccount returns all of the account's payment methods.
func (r *PaymentMethodRepository) ListByAccount(ctx context.Context, accountID int64) ([]payment.Method, error) {
	rows, err := r.pool.Query(ctx, listMethodsSQL, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing payment methods for account %d: %w", accountID, err)
	}
	return pgx.CollectRows(rows, scanMethod)
}

// SetDefault makes the method the account's sole default.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, accountID, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set default payment method: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, clearDefaultMethodSQL, accountID); err != nil {
		return fmt.Errorf("clearing default payment methods: %w", err)
	}

	tag, err := tx.Exec(ctx, setDefaultMethodSQL, id, accountID)
	if err != nil {
		return fmt.Errorf("setting default payment method %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set default payment method: %w", err)
	}
	return nil
}

// Delete removes the method. Deleting the current default leaves the account
// with no default; nothing is auto-promoted.
func (r *PaymentMethodRepository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteMethodSQL, id, accountID)
	if err != nil {
		return fmt.Errorf("deleting payment method %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrNotFound
	}
	return nil
}

func scanMethod(row pgx.CollectableRow) (payment.Method, error) {
	var m payment.Method
	err := row.Scan(
		&m.ID, &m.AccountID, &m.Brand, &m.Last4, &m.CardHolder,
		&m.ExpiryMonth, &m.ExpiryYear, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
