package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment lifecycle state of an order. Transitions are
// monotonic: pending -> paid or pending -> declined, both terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusDeclined Status = "declined"
)

// Terminal reports whether no further status transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusDeclined
}

// Order is a placed customer order with its full price breakdown. The origin
// address is captured once at creation time and used only as a correlation
// key for the first-purchase payment heuristic.
type Order struct {
	ID                int64
	AccountID         int64
	OriginAddr        string
	BillingAddressID  int64
	ShippingAddressID int64
	PaymentMethodID   int64
	Status            Status
	Subtotal          decimal.Decimal
	Shipping          decimal.Decimal
	Discount          decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	Notes             string
	Items             []Item
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Item is a single order line with the unit price snapshot captured at order
// time, deliberately decoupled from live catalog pricing.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and all its items in one transaction and
	// fills in the generated ID and timestamps.
	Create(ctx context.Context, o *Order) error

	// GetByID returns the order with its items, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Order, error)

	// ListByAccount returns the account's orders, newest first, without items.
	ListByAccount(ctx context.Context, accountID int64) ([]Order, error)

	// HasOtherOrders reports whether any persisted order other than excludeID
	// matches the account OR the origin address. Callers that need the check
	// and the subsequent status write to be race-free must use DecideTx.
	HasOtherOrders(ctx context.Context, accountID int64, originAddr string, excludeID int64) (bool, error)

	// DecideTx runs fn inside a transaction that holds advisory locks for the
	// order's account and origin address, serializing concurrent payment
	// decisions that share either correlation key. fn receives a view of the
	// repository bound to the transaction.
	DecideTx(ctx context.Context, o *Order, fn func(tx DecisionTx) error) error
}

// DecisionTx is the transactional view used while deciding a payment.
type DecisionTx interface {
	HasOtherOrders(ctx context.Context, accountID int64, originAddr string, excludeID int64) (bool, error)

	// SetStatus transitions a pending order to the given terminal status.
	// It is a no-op (no error) when the order is no longer pending.
	SetStatus(ctx context.Context, orderID int64, status Status) error
}

// FraudChecker reports whether a network origin address has been flagged.
type FraudChecker interface {
	IsFlagged(ctx context.Context, originAddr string) (bool, error)
}
