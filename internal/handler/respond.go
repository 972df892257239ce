package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Code: status, Message: message})
}

// writeDomainError maps a domain error onto an HTTP response. Validation
// problems surface verbatim; ownership and lookup failures collapse into a
// generic 404 so resource existence never leaks across accounts; anything
// else is a logged 500 with no details for the caller.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		qtyErr   *order.InvalidQuantityError
		priceErr *order.InvalidPriceError
		ownErr   *order.OwnershipError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrNotesTooLong),
		errors.Is(err, pricing.ErrUnknownShippingMethod):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &qtyErr), errors.As(err, &priceErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &ownErr):
		writeError(w, http.StatusNotFound, ownErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, address.ErrNotFound):
		writeError(w, http.StatusNotFound, "address not found")
	case errors.Is(err, payment.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment method not found")
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	default:
		zctx.From(r.Context()).Error("internal error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody parses a JSON request body into dst, responding with 400 on
// malformed input. It reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
