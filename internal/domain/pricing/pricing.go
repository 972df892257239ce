// Package pricing computes checkout totals: tiered shipping, the flat
// promotional discount, and tax. All functions are pure.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ShippingMethod selects a shipping cost tier at checkout.
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

// ErrUnknownShippingMethod is returned for a method outside the known tiers.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

var (
	// freeShippingThreshold is the exclusive subtotal above which shipping is free.
	freeShippingThreshold = decimal.NewFromInt(1000)

	// flatDiscount is the promotional deduction applied to any non-empty cart.
	flatDiscount = decimal.NewFromInt(43)

	// taxRate applies to subtotal + shipping - discount.
	taxRate = decimal.NewFromFloat(0.08)

	shippingRates = map[ShippingMethod]decimal.Decimal{
		ShippingStandard:  decimal.NewFromInt(19),
		ShippingExpress:   decimal.NewFromInt(29),
		ShippingOvernight: decimal.NewFromInt(49),
	}
)

// Item is a cart line as priced at checkout time.
type Item struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the full price breakdown for an order, rounded to 2 decimal
// places. Rounding happens once on the outputs; intermediate arithmetic is
// exact.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals calculates the price breakdown for the given cart lines and
// shipping method. Lines with non-positive quantity contribute nothing to the
// subtotal. An empty or zero-value cart yields all-zero totals regardless of
// method; otherwise an unknown method is an error.
func ComputeTotals(items []Item, method ShippingMethod) (Totals, error) {
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(it.Quantity))
		subtotal = subtotal.Add(it.UnitPrice.Mul(qty))
	}

	hasItems := len(items) > 0 && subtotal.IsPositive()
	if !hasItems {
		return Totals{
			Subtotal: subtotal.Round(2),
			Shipping: decimal.Zero,
			Discount: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
		}, nil
	}

	shipping := decimal.Zero
	if !subtotal.GreaterThan(freeShippingThreshold) {
		rate, ok := shippingRates[method]
		if !ok {
			return Totals{}, errors.Wrapf(ErrUnknownShippingMethod, "%q", method)
		}
		shipping = rate
	} else if _, ok := shippingRates[method]; !ok {
		// Above the free threshold the rate is irrelevant, but the method
		// must still be one the store offers.
		return Totals{}, errors.Wrapf(ErrUnknownShippingMethod, "%q", method)
	}

	// Discount cannot push the taxable base below zero: a cart cheaper than
	// the flat discount checks out at 0.00, never a negative total.
	discount := flatDiscount
	taxable := subtotal.Add(shipping).Sub(discount)
	if taxable.IsNegative() {
		discount = subtotal.Add(shipping)
		taxable = decimal.Zero
	}
	tax := taxable.Mul(taxRate)
	total := taxable.Add(tax)

	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping.Round(2),
		Discount: discount.Round(2),
		Tax:      tax.Round(2),
		Total:    total.Round(2),
	}, nil
}
