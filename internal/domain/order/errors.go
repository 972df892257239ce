package order

import "fmt"

// Sentinel errors for checkout validation and lookup.
var (
	ErrEmptyItems   = fmt.Errorf("items required")
	ErrNotFound     = fmt.Errorf("order not found")
	ErrNotesTooLong = fmt.Errorf("notes must be %d characters or fewer", MaxNotesLen)
)

// MaxNotesLen bounds the free-text notes attached to an order.
const MaxNotesLen = 500

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidPriceError indicates a line item carries a negative price snapshot.
type InvalidPriceError struct {
	ProductID string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("price must not be negative for product %s", e.ProductID)
}

// OwnershipError indicates a referenced resource does not belong to the
// requesting account. Its message never reveals whether the resource exists
// under another account.
type OwnershipError struct {
	Resource string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}
