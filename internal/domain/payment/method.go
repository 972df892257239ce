// Package payment holds saved payment instruments. Raw card numbers and CVC
// codes are accepted at the API boundary only; the stored representation is
// brand + last four digits + holder + expiry.
package payment

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a payment method does not exist for the
// requesting account.
var ErrNotFound = errors.New("payment method not found")

// Method is a saved payment instrument belonging to one account. At most one
// method per account has IsDefault set.
type Method struct {
	ID          int64
	AccountID   int64
	Brand       string
	Last4       string
	CardHolder  string
	ExpiryMonth int
	ExpiryYear  int
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CardInput is the full card detail submitted when saving a method. It is
// redacted into a Method before anything is persisted or published.
type CardInput struct {
	Number      string
	CVC         string
	CardHolder  string
	ExpiryMonth int
	ExpiryYear  int
	IsDefault   bool
}

// Validate checks the submitted card fields. The CVC is required on input
// even though it is never stored.
func (in *CardInput) Validate() error {
	digits := digitsOf(in.Number)
	switch {
	case len(digits) < 12 || len(digits) > 19:
		return errors.New("card number must be 12-19 digits")
	case len(in.CVC) < 3 || len(in.CVC) > 4:
		return errors.New("cvc must be 3-4 digits")
	case in.CardHolder == "":
		return errors.New("card holder is required")
	case in.ExpiryMonth < 1 || in.ExpiryMonth > 12:
		return errors.New("expiry month must be 1-12")
	case in.ExpiryYear < time.Now().Year():
		return errors.New("card is expired")
	}
	return nil
}

// Redact converts the submitted card into its stored form, dropping the CVC
// and keeping only the last four digits of the number.
func (in *CardInput) Redact(accountID int64) *Method {
	digits := digitsOf(in.Number)
	return &Method{
		AccountID:   accountID,
		Brand:       BrandOf(digits),
		Last4:       digits[len(digits)-4:],
		CardHolder:  in.CardHolder,
		ExpiryMonth: in.ExpiryMonth,
		ExpiryYear:  in.ExpiryYear,
		IsDefault:   in.IsDefault,
	}
}

// MaskNumber renders a card number with all but the last four digits hidden,
// for human-readable notifications.
func MaskNumber(number string) string {
	digits := digitsOf(number)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// BrandOf infers the card brand from the number's leading digits.
func BrandOf(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(digits, "34") || strings.HasPrefix(digits, "37"):
		return "amex"
	default:
		return "card"
	}
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Repository defines owner-scoped persistence for payment methods, with the
// same transactional default invariant as addresses.
type Repository interface {
	Create(ctx context.Context, m *Method) error
	GetByID(ctx context.Context, accountID, id int64) (*Method, error)
	ListByAccount(ctx context.Context, accountID int64) ([]Method, error)
	SetDefault(ctx context.Context, accountID, id int64) error
	Delete(ctx context.Context, accountID, id int64) error
}
