package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(account_id, origin_addr, billing_address_id, shipping_address_id,
		 payment_method_id, status, subtotal, shipping, discount, tax, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`

	getOrderSQL = `SELECT id, account_id, origin_addr, billing_address_id, shipping_address_id,
		payment_method_id, status, subtotal, shipping, discount, tax, total, notes,
		created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, account_id, origin_addr, billing_address_id, shipping_address_id,
		payment_method_id, status, subtotal, shipping, discount, tax, total, notes,
		created_at, updated_at
		FROM orders WHERE account_id = $1 ORDER BY created_at DESC, id DESC`

	getOrderItemsSQL = `SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	hasOtherOrdersSQL = `SELECT EXISTS (
		SELECT 1 FROM orders
		WHERE id <> $1 AND (account_id = $2 OR origin_addr = $3)
	)`

	// Two advisory lock classes keep account keys and origin keys in separate
	// lock spaces; acquiring account before origin everywhere avoids deadlock.
	lockAccountSQL = `SELECT pg_advisory_xact_lock(1, hashtext($1::text))`
	lockOriginSQL  = `SELECT pg_advisory_xact_lock(2, hashtext($1))`

	setOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all its items in a single transaction and
// fills in the generated ID and timestamps. A failure between the order and
// its items rolls everything back; an order row never exists without lines.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	err = tx.QueryRow(ctx, createOrderSQL,
		o.AccountID, o.OriginAddr, o.BillingAddressID, o.ShippingAddressID,
		o.PaymentMethodID, string(o.Status),
		o.Subtotal, o.Shipping, o.Discount, o.Tax, o.Total, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	for _, item := range o.Items {
		_, err := tx.Exec(ctx, createOrderItemSQL, o.ID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("creating order item %q: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

// GetByID returns the order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d items: %w", id, err)
	}
	items, err := pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting order %d items: %w", id, err)
	}
	o.Items = items

	return &o, nil
}

// ListByAccount returns the account's orders, newest first, without items.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for account %d: %w", accountID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// HasOtherOrders reports whether any persisted order other than excludeID
// matches the account or the origin address.
func (r *OrderRepository) HasOtherOrders(ctx context.Context, accountID int64, originAddr string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, hasOtherOrdersSQL, excludeID, accountID, originAddr).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking prior orders: %w", err)
	}
	return exists, nil
}

// DecideTx runs fn inside a transaction holding advisory locks for the
// order's account and origin address. Any two decisions sharing either
// correlation key are serialized: the second transaction blocks until the
// first commits, so it observes the first order as already persisted.
func (r *OrderRepository) DecideTx(ctx context.Context, o *order.Order, fn func(order.DecisionTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin decide order: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, lockAccountSQL, o.AccountID); err != nil {
		return fmt.Errorf("locking account key: %w", err)
	}
	if _, err := tx.Exec(ctx, lockOriginSQL, o.OriginAddr); err != nil {
		return fmt.Errorf("locking origin key: %w", err)
	}

	if err := fn(&decisionTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit decide order: %w", err)
	}
	return nil
}

// decisionTx is the transaction-bound view handed to the decision callback.
type decisionTx struct {
	tx pgx.Tx
}

func (d *decisionTx) HasOtherOrders(ctx context.Context, accountID int64, originAddr string, excludeID int64) (bool, error) {
	var exists bool
	err := d.tx.QueryRow(ctx, hasOtherOrdersSQL, excludeID, accountID, originAddr).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking prior orders: %w", err)
	}
	return exists, nil
}

// SetStatus transitions a pending order to the given terminal status. The
// WHERE guard makes the write a no-op when another decision already landed.
func (d *decisionTx) SetStatus(ctx context.Context, orderID int64, status order.Status) error {
	_, err := d.tx.Exec(ctx, setOrderStatusSQL, orderID, string(status))
	if err != nil {
		return fmt.Errorf("setting order %d status: %w", orderID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.AccountID, &o.OriginAddr, &o.BillingAddressID, &o.ShippingAddressID,
		&o.PaymentMethodID, &status,
		&o.Subtotal, &o.Shipping, &o.Discount, &o.Tax, &o.Total, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice)
	return it, err
}
