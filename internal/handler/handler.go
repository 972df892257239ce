// Package handler exposes the storefront over HTTP with JSON bodies. Every
// route except the health endpoints requires an authenticated session.
package handler

import (
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/notify"
	"github.com/xenking/storefront-api/internal/processing"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the storefront API, delegating business logic to the
// injected domain services and repositories.
type Handler struct {
	products  product.Repository
	orders    *order.Service
	addresses address.Repository
	methods   payment.Repository
	carts     *cart.Store
	monitor   *processing.Monitor
	notifier  *notify.Notifier

	imageBaseURL string
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders *order.Service,
	addresses address.Repository,
	methods payment.Repository,
	carts *cart.Store,
	monitor *processing.Monitor,
	notifier *notify.Notifier,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		addresses:    addresses,
		methods:      methods,
		carts:        carts,
		monitor:      monitor,
		notifier:     notifier,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API route table. The caller mounts it under /api/ and
// wraps it with the session middleware and the shared middleware chain.
func (h *Handler) Routes(requireSession func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{productID}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)

	mux.HandleFunc("GET /api/wishlist", h.GetWishlist)
	mux.HandleFunc("POST /api/wishlist/{productID}", h.AddWishlistItem)
	mux.HandleFunc("DELETE /api/wishlist/{productID}", h.RemoveWishlistItem)

	mux.HandleFunc("GET /api/addresses", h.ListAddresses)
	mux.HandleFunc("POST /api/addresses", h.CreateAddress)
	mux.HandleFunc("PUT /api/addresses/{id}", h.UpdateAddress)
	mux.HandleFunc("POST /api/addresses/{id}/default", h.SetDefaultAddress)
	mux.HandleFunc("DELETE /api/addresses/{id}", h.DeleteAddress)

	mux.HandleFunc("GET /api/payment-methods", h.ListPaymentMethods)
	mux.HandleFunc("POST /api/payment-methods", h.CreatePaymentMethod)
	mux.HandleFunc("POST /api/payment-methods/{id}/default", h.SetDefaultPaymentMethod)
	mux.HandleFunc("DELETE /api/payment-methods/{id}", h.DeletePaymentMethod)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/orders/{id}/processing", h.OrderProcessing)
	mux.HandleFunc("POST /api/orders/{id}/payment", h.DecidePayment)

	return requireSession(mux)
}
