// Package cart provides session-scoped cart and wishlist state. State lives
// in an explicit Store that callers inject and pass around; there is no
// package-level singleton. Checkout reads a snapshot of the cart; the server
// never treats these prices as authoritative catalog prices.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Line is one cart entry with the unit price snapshot taken when the product
// was added.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Cart is the mutable cart of a single session. All methods are safe for
// concurrent use.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// Add inserts a line or, when the product is already present, increases its
// quantity and refreshes the price snapshot. Non-positive quantities are
// ignored.
func (c *Cart) Add(productID string, quantity int, unitPrice decimal.Decimal) {
	if quantity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity += quantity
			c.lines[i].UnitPrice = unitPrice
			return
		}
	}
	c.lines = append(c.lines, Line{ProductID: productID, Quantity: quantity, UnitPrice: unitPrice})
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line. It reports whether the product was present.
func (c *Cart) UpdateQuantity(productID string, quantity int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity = quantity
		}
		return true
	}
	return false
}

// Remove deletes a line. It reports whether the product was present.
func (c *Cart) Remove(productID string) bool {
	return c.UpdateQuantity(productID, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total returns the sum of unit price x quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Wishlist is the saved-for-later product set of a single session.
type Wishlist struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// Add marks a product as wished.
func (w *Wishlist) Add(productID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ids == nil {
		w.ids = make(map[string]struct{})
	}
	w.ids[productID] = struct{}{}
}

// Remove unmarks a product. It reports whether it was present.
func (w *Wishlist) Remove(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ids[productID]
	delete(w.ids, productID)
	return ok
}

// Contains reports whether a product is wished.
func (w *Wishlist) Contains(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ids[productID]
	return ok
}

// Items returns the wished product IDs in insertion-independent order.
func (w *Wishlist) Items() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.ids))
	for id := range w.ids {
		out = append(out, id)
	}
	return out
}

// Store hands out per-session carts and wishlists, creating them on first
// use. Sessions are keyed by an opaque identifier (the session token hash).
type Store struct {
	mu        sync.Mutex
	carts     map[string]*Cart
	wishlists map[string]*Wishlist
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		carts:     make(map[string]*Cart),
		wishlists: make(map[string]*Wishlist),
	}
}

// Cart returns the session's cart, creating it if needed.
func (s *Store) Cart(sessionKey string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[sessionKey]
	if !ok {
		c = &Cart{}
		s.carts[sessionKey] = c
	}
	return c
}

// Wishlist returns the session's wishlist, creating it if needed.
func (s *Store) Wishlist(sessionKey string) *Wishlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wishlists[sessionKey]
	if !ok {
		w = &Wishlist{}
		s.wishlists[sessionKey] = w
	}
	return w
}

// Drop discards all state for a session.
func (s *Store) Drop(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionKey)
	delete(s.wishlists, sessionKey)
}
