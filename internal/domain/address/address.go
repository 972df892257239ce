// Package address holds saved shipping/billing addresses with the
// one-default-per-account invariant.
package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist for the requesting
// account. The message deliberately does not distinguish "missing" from
// "owned by someone else".
var ErrNotFound = errors.New("address not found")

// Address is a saved postal address belonging to one account. At most one
// address per account has IsDefault set.
type Address struct {
	ID         int64
	AccountID  int64
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the required structured fields.
func (a *Address) Validate() error {
	switch {
	case a.Line1 == "":
		return errors.New("address line1 is required")
	case a.City == "":
		return errors.New("city is required")
	case a.PostalCode == "":
		return errors.New("postal code is required")
	case a.Country == "":
		return errors.New("country is required")
	}
	return nil
}

// Repository defines owner-scoped persistence for addresses. Implementations
// must enforce the default invariant transactionally: any write that sets
// IsDefault first clears all of the account's existing defaults in the same
// transaction.
type Repository interface {
	// Create inserts the address and fills in the generated ID. When
	// a.IsDefault is set, existing defaults are cleared first.
	Create(ctx context.Context, a *Address) error

	// GetByID returns the address only when it belongs to accountID,
	// otherwise ErrNotFound.
	GetByID(ctx context.Context, accountID, id int64) (*Address, error)

	// ListByAccount returns all of the account's addresses.
	ListByAccount(ctx context.Context, accountID int64) ([]Address, error)

	// Update rewrites the address fields. Ownership is checked; a default
	// flip clears prior defaults in the same transaction.
	Update(ctx context.Context, a *Address) error

	// SetDefault makes the address the account's sole default.
	SetDefault(ctx context.Context, accountID, id int64) error

	// Delete removes the address. Deleting the current default leaves the
	// account with no default address.
	Delete(ctx context.Context, accountID, id int64) error
}
