package handler

import (
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/notify"
)

type paymentMethodRequest struct {
	Number      string `json:"number"`
	CVC         string `json:"cvc"`
	CardHolder  string `json:"cardHolder"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	IsDefault   bool   `json:"isDefault"`
}

// paymentMethodResponse is the redacted form. The full number and CVC never
// appear in a response body.
type paymentMethodResponse struct {
	ID          int64  `json:"id"`
	Brand       string `json:"brand"`
	Last4       string `json:"last4"`
	CardHolder  string `json:"cardHolder"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	IsDefault   bool   `json:"isDefault"`
}

func toPaymentMethodResponse(m payment.Method) paymentMethodResponse {
	return paymentMethodResponse{
		ID:          m.ID,
		Brand:       m.Brand,
		Last4:       m.Last4,
		CardHolder:  m.CardHolder,
		ExpiryMonth: m.ExpiryMonth,
		ExpiryYear:  m.ExpiryYear,
		IsDefault:   m.IsDefault,
	}
}

// ListPaymentMethods returns the account's saved payment methods.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	methods, err := h.methods.ListByAccount(r.Context(), sess.AccountID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]paymentMethodResponse, len(methods))
	for i, m := range methods {
		out[i] = toPaymentMethodResponse(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreatePaymentMethod validates the submitted card, stores the redacted form
// and emits a payment_method.created notification in the background.
func (h *Handler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req paymentMethodRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := payment.CardInput{
		Number:      req.Number,
		CVC:         req.CVC,
		CardHolder:  req.CardHolder,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		IsDefault:   req.IsDefault,
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := in.Redact(sess.AccountID)
	if err := h.methods.Create(r.Context(), m); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.notifier.PaymentMethodCreated(notify.NewPaymentMethodCreated(&in, m))

	writeJSON(w, http.StatusCreated, toPaymentMethodResponse(*m))
}

// SetDefaultPaymentMethod makes the method the account's sole default.
func (h *Handler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "payment method")
	if !ok {
		return
	}

	if err := h.methods.SetDefault(r.Context(), sess.AccountID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePaymentMethod removes a saved method.
func (h *Handler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "payment method")
	if !ok {
		return
	}

	if err := h.methods.Delete(r.Context(), sess.AccountID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
