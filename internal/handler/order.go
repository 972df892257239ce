package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/pricing"
	"github.com/xenking/storefront-api/internal/processing"
	"github.com/xenking/storefront-api/pkg/httpmiddleware"
)

type checkoutItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type checkoutRequest struct {
	Items             []checkoutItemRequest `json:"items"`
	BillingAddressID  int64                 `json:"billingAddressId"`
	ShippingAddressID int64                 `json:"shippingAddressId"`
	PaymentMethodID   int64                 `json:"paymentMethodId"`
	ShippingMethod    string                `json:"shippingMethod"`
	Notes             string                `json:"notes"`
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type orderResponse struct {
	ID                int64               `json:"id"`
	Status            string              `json:"status"`
	BillingAddressID  int64               `json:"billingAddressId"`
	ShippingAddressID int64               `json:"shippingAddressId"`
	PaymentMethodID   int64               `json:"paymentMethodId"`
	Subtotal          float64             `json:"subtotal"`
	Shipping          float64             `json:"shipping"`
	Discount          float64             `json:"discount"`
	Tax               float64             `json:"tax"`
	Total             float64             `json:"total"`
	Notes             string              `json:"notes,omitempty"`
	Items             []orderItemResponse `json:"items,omitempty"`
	CreatedAt         string              `json:"createdAt"`
}

type processingResponse struct {
	OrderID  int64   `json:"orderId"`
	Progress float64 `json:"progress"`
	Phase    string  `json:"phase"`
	Done     bool    `json:"done"`
	Status   string  `json:"status,omitempty"`
	Message  string  `json:"message,omitempty"`
}

type decisionResponse struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:                o.ID,
		Status:            string(o.Status),
		BillingAddressID:  o.BillingAddressID,
		ShippingAddressID: o.ShippingAddressID,
		PaymentMethodID:   o.PaymentMethodID,
		Subtotal:          o.Subtotal.InexactFloat64(),
		Shipping:          o.Shipping.InexactFloat64(),
		Discount:          o.Discount.InexactFloat64(),
		Tax:               o.Tax.InexactFloat64(),
		Total:             o.Total.InexactFloat64(),
		Notes:             o.Notes,
		Items:             items,
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Checkout places an order from the submitted items and starts the payment
// processing countdown. The order is returned in pending status; the decision
// lands when the countdown fires or a manual trigger arrives.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: decimal.NewFromFloat(it.UnitPrice),
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		AccountID:         sess.AccountID,
		Items:             items,
		BillingAddressID:  req.BillingAddressID,
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethodID:   req.PaymentMethodID,
		ShippingMethod:    pricing.ShippingMethod(req.ShippingMethod),
		Notes:             req.Notes,
		Origin:            httpmiddleware.ClientOrigin(r),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.monitor.Start(r.Context(), sess.AccountID, o.ID)
	h.carts.Cart(sess.TokenHash).Clear()

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOrders returns the account's order history, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), sess.AccountID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrder returns one order with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "order")
	if !ok {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), sess.AccountID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// OrderProcessing reports countdown progress for an order placed by this
// process. For orders the process is not tracking (for example after a
// restart) it synthesizes the view from the persisted status.
func (h *Handler) OrderProcessing(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "order")
	if !ok {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), sess.AccountID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if p, tracked := h.monitor.Progress(id); tracked {
		writeJSON(w, http.StatusOK, processingResponse{
			OrderID:  p.OrderID,
			Progress: p.Fraction,
			Phase:    p.Phase,
			Done:     p.Done,
			Status:   p.Status,
			Message:  p.Message,
		})
		return
	}

	resp := processingResponse{OrderID: o.ID, Phase: processing.PhaseLabel(0)}
	if o.Status.Terminal() {
		resp.Progress = 1
		resp.Phase = processing.PhaseLabel(1)
		resp.Done = true
		resp.Status = string(o.Status)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DecidePayment applies the payment decision immediately instead of waiting
// out the countdown. It is idempotent: repeating the call for a decided order
// returns the stored outcome.
func (h *Handler) DecidePayment(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "order")
	if !ok {
		return
	}

	// Ownership first, so foreign orders cannot be triggered or probed.
	if _, err := h.orders.GetOrder(r.Context(), sess.AccountID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if h.monitor.Trigger(r.Context(), id) {
		// Trigger completes synchronously, so the outcome is available.
		if p, tracked := h.monitor.Progress(id); tracked && p.Done {
			writeJSON(w, http.StatusOK, decisionResponse{
				OrderID: id,
				Status:  p.Status,
				Message: p.Message,
			})
			return
		}
	}

	d, err := h.orders.DecidePayment(r.Context(), sess.AccountID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse{
		OrderID: id,
		Status:  string(d.Status),
		Message: d.Message,
	})
}
