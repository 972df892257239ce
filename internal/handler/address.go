package handler

import (
	"net/http"
	"strconv"

	"github.com/xenking/storefront-api/internal/domain/address"
)

type addressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

type addressResponse struct {
	ID         int64  `json:"id"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

func toAddressResponse(a address.Address) addressResponse {
	return addressResponse{
		ID:         a.ID,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
	}
}

// pathID parses the {id} path segment, responding with 404 on garbage: a
// non-numeric id can never name an existing resource.
func pathID(w http.ResponseWriter, r *http.Request, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, resource+" not found")
		return 0, false
	}
	return id, true
}

// ListAddresses returns the account's saved addresses.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	addrs, err := h.addresses.ListByAccount(r.Context(), sess.AccountID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]addressResponse, len(addrs))
	for i, a := range addrs {
		out[i] = toAddressResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateAddress saves a new address. A default flag on the request clears any
// previous default in the same transaction.
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}

	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a := &address.Address{
		AccountID:  sess.AccountID,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.addresses.Create(r.Context(), a); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAddressResponse(*a))
}

// UpdateAddress rewrites an existing address.
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "address")
	if !ok {
		return
	}

	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a := &address.Address{
		ID:         id,
		AccountID:  sess.AccountID,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		IsDefault:  req.IsDefault,
	}
	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.addresses.Update(r.Context(), a); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAddressResponse(*a))
}

// SetDefaultAddress makes the address the account's sole default.
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "address")
	if !ok {
		return
	}

	if err := h.addresses.SetDefault(r.Context(), sess.AccountID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAddress removes an address. Deleting the default leaves none.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "address")
	if !ok {
		return
	}

	if err := h.addresses.Delete(r.Context(), sess.AccountID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
