package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/pricing"
)

// PlaceOrderRequest holds the input for placing an order. Origin is the
// network origin address already extracted from the request by the caller.
type PlaceOrderRequest struct {
	AccountID         int64
	Items             []Item
	BillingAddressID  int64
	ShippingAddressID int64 // 0 means "use billing"
	PaymentMethodID   int64
	ShippingMethod    pricing.ShippingMethod
	Notes             string
	Origin            string
}

// Service encapsulates checkout orchestration and the payment decision.
type Service struct {
	orders    Repository
	addresses address.Repository
	methods   payment.Repository
	fraud     FraudChecker
}

// NewService creates an order Service with the required domain dependencies.
// fraud may be nil when no flagged-origin list is configured.
func NewService(
	orders Repository,
	addresses address.Repository,
	methods payment.Repository,
	fraud FraudChecker,
) *Service {
	return &Service{
		orders:    orders,
		addresses: addresses,
		methods:   methods,
		fraud:     fraud,
	}
}

// PlaceOrder validates the cart and ownership of the referenced address and
// payment method, computes totals, and persists the order with its items in
// one transaction. The order starts in StatusPending; no payment decision
// happens here.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if item.UnitPrice.IsNegative() {
			return nil, &InvalidPriceError{ProductID: item.ProductID}
		}
	}
	if len(req.Notes) > MaxNotesLen {
		return nil, ErrNotesTooLong
	}

	// Ownership checks happen before any write. Failures surface as generic
	// "not found" so callers cannot probe other accounts' resources.
	if _, err := s.addresses.GetByID(ctx, req.AccountID, req.BillingAddressID); err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, &OwnershipError{Resource: "billing address"}
		}
		return nil, errors.Wrap(err, "get billing address")
	}

	shippingAddressID := req.ShippingAddressID
	if shippingAddressID == 0 {
		shippingAddressID = req.BillingAddressID
	} else if shippingAddressID != req.BillingAddressID {
		if _, err := s.addresses.GetByID(ctx, req.AccountID, shippingAddressID); err != nil {
			if errors.Is(err, address.ErrNotFound) {
				return nil, &OwnershipError{Resource: "shipping address"}
			}
			return nil, errors.Wrap(err, "get shipping address")
		}
	}

	if _, err := s.methods.GetByID(ctx, req.AccountID, req.PaymentMethodID); err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, &OwnershipError{Resource: "payment method"}
		}
		return nil, errors.Wrap(err, "get payment method")
	}

	// Totals use the client-submitted price snapshots, not catalog prices.
	lines := make([]pricing.Item, len(req.Items))
	for i, item := range req.Items {
		lines[i] = pricing.Item{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	totals, err := pricing.ComputeTotals(lines, req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	origin := req.Origin
	if origin == "" {
		origin = "127.0.0.1"
	}

	o := &Order{
		AccountID:         req.AccountID,
		OriginAddr:        origin,
		BillingAddressID:  req.BillingAddressID,
		ShippingAddressID: shippingAddressID,
		PaymentMethodID:   req.PaymentMethodID,
		Status:            StatusPending,
		Subtotal:          totals.Subtotal,
		Shipping:          totals.Shipping,
		Discount:          totals.Discount,
		Tax:               totals.Tax,
		Total:             totals.Total,
		Notes:             req.Notes,
		Items:             req.Items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// Decision is the outcome of a payment decision call.
type Decision struct {
	Status  Status
	Message string
}

// Decision messages returned to the client.
const (
	msgApproved  = "Payment approved. Thank you for your first order!"
	msgDeclined  = "Payment declined by processor."
	msgFlagged   = "Payment declined by processor."
	msgAlreadyIn = "Order already processed."
)

// DecidePayment applies the first-purchase heuristic to a pending order:
// approve when no other persisted order shares the account or the captured
// origin address, decline otherwise. The check and the status write run in
// one transaction holding advisory locks for both correlation keys, so two
// concurrent first orders cannot both approve. Calling it on a terminal
// order returns the stored status without another write.
func (s *Service) DecidePayment(ctx context.Context, accountID, orderID int64) (Decision, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return Decision{}, err
	}
	if o.AccountID != accountID {
		return Decision{}, ErrNotFound
	}

	if o.Status.Terminal() {
		return Decision{Status: o.Status, Message: msgAlreadyIn}, nil
	}

	if s.fraud != nil {
		flagged, err := s.fraud.IsFlagged(ctx, o.OriginAddr)
		if err != nil {
			return Decision{}, errors.Wrap(err, "check flagged origin")
		}
		if flagged {
			if err := s.declineTx(ctx, o); err != nil {
				return Decision{}, err
			}
			return Decision{Status: StatusDeclined, Message: msgFlagged}, nil
		}
	}

	var decision Decision
	err = s.orders.DecideTx(ctx, o, func(tx DecisionTx) error {
		prior, err := tx.HasOtherOrders(ctx, o.AccountID, o.OriginAddr, o.ID)
		if err != nil {
			return errors.Wrap(err, "check prior orders")
		}

		status := StatusPaid
		message := msgApproved
		if prior {
			status = StatusDeclined
			message = msgDeclined
		}

		if err := tx.SetStatus(ctx, o.ID, status); err != nil {
			return errors.Wrap(err, "set order status")
		}
		decision = Decision{Status: status, Message: message}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}

func (s *Service) declineTx(ctx context.Context, o *Order) error {
	return s.orders.DecideTx(ctx, o, func(tx DecisionTx) error {
		return tx.SetStatus(ctx, o.ID, StatusDeclined)
	})
}

// GetOrder returns an order owned by the account, with items.
func (s *Service) GetOrder(ctx context.Context, accountID, orderID int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.AccountID != accountID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListOrders returns the account's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, accountID int64) ([]Order, error) {
	return s.orders.ListByAccount(ctx, accountID)
}
