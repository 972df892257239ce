package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

type cartLineResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Total float64            `json:"total"`
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the session's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	h.writeCart(w, sess.TokenHash)
}

// AddCartItem adds a product to the session cart, snapshotting the current
// catalog price.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.carts.Cart(sess.TokenHash).Add(p.ID, req.Quantity, p.Price)
	h.writeCart(w, sess.TokenHash)
}

// UpdateCartItem sets the quantity of a cart line; zero removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must not be negative")
		return
	}

	if !h.carts.Cart(sess.TokenHash).UpdateQuantity(r.PathValue("productID"), req.Quantity) {
		writeError(w, http.StatusNotFound, "product not in cart")
		return
	}
	h.writeCart(w, sess.TokenHash)
}

// RemoveCartItem deletes a cart line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	if !h.carts.Cart(sess.TokenHash).Remove(r.PathValue("productID")) {
		writeError(w, http.StatusNotFound, "product not in cart")
		return
	}
	h.writeCart(w, sess.TokenHash)
}

// ClearCart empties the session cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	h.carts.Cart(sess.TokenHash).Clear()
	h.writeCart(w, sess.TokenHash)
}

func (h *Handler) writeCart(w http.ResponseWriter, sessionKey string) {
	c := h.carts.Cart(sessionKey)
	lines := c.Items()

	items := make([]cartLineResponse, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		items[i] = cartLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.InexactFloat64(),
		}
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	writeJSON(w, http.StatusOK, cartResponse{Items: items, Total: total.InexactFloat64()})
}

type wishlistResponse struct {
	ProductIDs []string `json:"productIds"`
}

// GetWishlist returns the session's wishlist.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	ids := h.carts.Wishlist(sess.TokenHash).Items()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, wishlistResponse{ProductIDs: ids})
}

// AddWishlistItem marks a catalog product as wished.
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	id := r.PathValue("productID")
	if _, err := h.products.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeDomainError(w, r, err)
		return
	}

	h.carts.Wishlist(sess.TokenHash).Add(id)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveWishlistItem unmarks a wished product.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	if !h.carts.Wishlist(sess.TokenHash).Remove(r.PathValue("productID")) {
		writeError(w, http.StatusNotFound, "product not in wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
