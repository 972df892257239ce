package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/address"
	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/notify"
	"github.com/xenking/storefront-api/internal/processing"
)

const (
	testPepper = "test-pepper"
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

type fakeProducts struct {
	items map[string]product.Product
}

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*order.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{nextID: 1, orders: make(map[int64]*order.Order)}
}

func (f *fakeOrders) Create(_ context.Context, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = f.nextID
	f.nextID++
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp, nil
}

func (f *fakeOrders) ListByAccount(_ context.Context, accountID int64) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Order
	for _, o := range f.orders {
		if o.AccountID == accountID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) HasOtherOrders(_ context.Context, accountID int64, originAddr string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.orders {
		if id == excludeID {
			continue
		}
		if o.AccountID == accountID || o.OriginAddr == originAddr {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOrders) DecideTx(ctx context.Context, _ *order.Order, fn func(tx order.DecisionTx) error) error {
	return fn(f)
}

func (f *fakeOrders) SetStatus(_ context.Context, orderID int64, status order.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok && o.Status == order.StatusPending {
		o.Status = status
	}
	return nil
}

type fakeAddresses struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*address.Address
}

func newFakeAddresses() *fakeAddresses {
	return &fakeAddresses{nextID: 1, items: make(map[int64]*address.Address)}
}

func (f *fakeAddresses) Create(_ context.Context, a *address.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.IsDefault {
		f.clearDefault(a.AccountID)
	}
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAddresses) clearDefault(accountID int64) {
	for _, it := range f.items {
		if it.AccountID == accountID {
			it.IsDefault = false
		}
	}
}

func (f *fakeAddresses) GetByID(_ context.Context, accountID, id int64) (*address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.AccountID != accountID {
		return nil, address.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAddresses) ListByAccount(_ context.Context, accountID int64) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []address.Address
	for _, a := range f.items {
		if a.AccountID == accountID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAddresses) Update(_ context.Context, a *address.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[a.ID]
	if !ok || cur.AccountID != a.AccountID {
		return address.ErrNotFound
	}
	if a.IsDefault {
		f.clearDefault(a.AccountID)
	}
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAddresses) SetDefault(_ context.Context, accountID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.AccountID != accountID {
		return address.ErrNotFound
	}
	f.clearDefault(accountID)
	a.IsDefault = true
	return nil
}

func (f *fakeAddresses) Delete(_ context.Context, accountID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok || a.AccountID != accountID {
		return address.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeMethods struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*payment.Method
}

func newFakeMethods() *fakeMethods {
	return &fakeMethods{nextID: 1, items: make(map[int64]*payment.Method)}
}

func (f *fakeMethods) Create(_ context.Context, m *payment.Method) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.IsDefault {
		f.clearDefault(m.AccountID)
	}
	m.ID = f.nextID
	f.nextID++
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeMethods) clearDefault(accountID int64) {
	for _, it := range f.items {
		if it.AccountID == accountID {
			it.IsDefault = false
		}
	}
}

func (f *fakeMethods) GetByID(_ context.Context, accountID, id int64) (*payment.Method, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok || m.AccountID != accountID {
		return nil, payment.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMethods) ListByAccount(_ context.Context, accountID int64) ([]payment.Method, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payment.Method
	for _, m := range f.items {
		if m.AccountID == accountID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMethods) SetDefault(_ context.Context, accountID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok || m.AccountID != accountID {
		return payment.ErrNotFound
	}
	f.clearDefault(accountID)
	m.IsDefault = true
	return nil
}

func (f *fakeMethods) Delete(_ context.Context, accountID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok || m.AccountID != accountID {
		return payment.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeSessions struct {
	byHash map[string]*auth.Session
}

func (f *fakeSessions) FindByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	s, ok := f.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return s, nil
}

type testEnv struct {
	srv       *httptest.Server
	orders    *fakeOrders
	addresses *fakeAddresses
	methods   *fakeMethods
}

// newTestEnv wires the full handler stack with in-memory fakes. Alice owns
// address 1 and payment method 1; Bob owns address 2 and method 2. The
// processing monitor is configured with a short countdown so tests can wait
// it out.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	products := &fakeProducts{items: map[string]product.Product{
		"waffle": {ID: "waffle", Name: "Waffle with Berries", Price: decimal.RequireFromString("150.20"), Category: "Waffle"},
		"cake":   {ID: "cake", Name: "Vanilla Cake", Price: decimal.RequireFromString("450.00"), Category: "Cake"},
	}}

	orders := newFakeOrders()
	addresses := newFakeAddresses()
	methods := newFakeMethods()

	for accountID := int64(1); accountID <= 2; accountID++ {
		a := &address.Address{
			AccountID:  accountID,
			Line1:      fmt.Sprintf("%d Main St", accountID),
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
			IsDefault:  true,
		}
		require.NoError(t, addresses.Create(context.Background(), a))

		in := payment.CardInput{
			Number:      "4242424242424242",
			CVC:         "123",
			CardHolder:  "Card Holder",
			ExpiryMonth: 12,
			ExpiryYear:  time.Now().Year() + 2,
			IsDefault:   true,
		}
		require.NoError(t, methods.Create(context.Background(), in.Redact(accountID)))
	}

	svc := order.NewService(orders, addresses, methods, nil)

	monitor := processing.NewMonitor(300*time.Millisecond, func(ctx context.Context, accountID, orderID int64) (string, string, error) {
		d, err := svc.DecidePayment(ctx, accountID, orderID)
		if err != nil {
			return "", "", err
		}
		return string(d.Status), d.Message, nil
	})

	sessions := &fakeSessions{byHash: map[string]*auth.Session{
		HashToken(aliceToken, []byte(testPepper)): {
			TokenHash: HashToken(aliceToken, []byte(testPepper)),
			AccountID: 1,
			ExpiresAt: time.Now().Add(time.Hour),
		},
		HashToken(bobToken, []byte(testPepper)): {
			TokenHash: HashToken(bobToken, []byte(testPepper)),
			AccountID: 2,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}

	h := New(Config{}, products, svc, addresses, methods, cart.NewStore(), monitor, notify.NewNotifier(nil, nil))
	sec := NewSecurity(sessions, []byte(testPepper))

	srv := httptest.NewServer(h.Routes(sec.RequireSession))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, orders: orders, addresses: addresses, methods: methods}
}

func (e *testEnv) do(t *testing.T, token, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body: %s", raw)
	return v
}

func TestRequireSession(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "", http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, "no-such-token", http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, aliceToken, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProducts(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]productResponse](t, raw)
	assert.Len(t, list, 2)

	resp, raw = env.do(t, aliceToken, http.MethodGet, "/api/products/waffle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[productResponse](t, raw)
	assert.Equal(t, "Waffle with Berries", p.Name)
	assert.InDelta(t, 150.20, p.Price, 0.001)

	resp, _ = env.do(t, aliceToken, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/cart/items",
		addCartItemRequest{ProductID: "waffle", Quantity: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decode[cartResponse](t, raw)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.InDelta(t, 300.40, c.Total, 0.001)

	// Bob's cart is isolated from Alice's.
	resp, raw = env.do(t, bobToken, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[cartResponse](t, raw).Items)

	resp, raw = env.do(t, aliceToken, http.MethodPatch, "/api/cart/items/waffle",
		updateCartItemRequest{Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[cartResponse](t, raw).Items[0].Quantity)

	resp, _ = env.do(t, aliceToken, http.MethodDelete, "/api/cart/items/waffle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, aliceToken, http.MethodDelete, "/api/cart/items/waffle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/cart/items",
		addCartItemRequest{ProductID: "waffle", Quantity: 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestWishlist(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, aliceToken, http.MethodPost, "/api/wishlist/cake", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/wishlist/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw := env.do(t, aliceToken, http.MethodGet, "/api/wishlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"cake"}, decode[wishlistResponse](t, raw).ProductIDs)

	resp, _ = env.do(t, aliceToken, http.MethodDelete, "/api/wishlist/cake", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, raw = env.do(t, aliceToken, http.MethodGet, "/api/wishlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[wishlistResponse](t, raw).ProductIDs)
}

func TestAddresses_DefaultInvariant(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/addresses", addressRequest{
		Line1:      "5 Oak Ave",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
		IsDefault:  true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[addressResponse](t, raw)
	assert.True(t, created.IsDefault)

	resp, raw = env.do(t, aliceToken, http.MethodGet, "/api/addresses", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]addressResponse](t, raw)
	require.Len(t, list, 2)

	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			assert.Equal(t, created.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	// Promote the seeded address back via the explicit endpoint.
	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/addresses/1/default", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Bob cannot touch Alice's address.
	resp, _ = env.do(t, bobToken, http.MethodPost, fmt.Sprintf("/api/addresses/%d/default", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/addresses", addressRequest{City: "Nowhere"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentMethods_Redaction(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/payment-methods", paymentMethodRequest{
		Number:      "5555 5555 5555 4444",
		CVC:         "999",
		CardHolder:  "Alice Example",
		ExpiryMonth: 6,
		ExpiryYear:  time.Now().Year() + 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	m := decode[paymentMethodResponse](t, raw)
	assert.Equal(t, "mastercard", m.Brand)
	assert.Equal(t, "4444", m.Last4)
	assert.NotContains(t, string(raw), "5555555555554444")
	assert.NotContains(t, string(raw), "cvc")

	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/payment-methods", paymentMethodRequest{
		Number: "123", CVC: "12", CardHolder: "", ExpiryMonth: 0, ExpiryYear: 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, aliceToken, http.MethodDelete, fmt.Sprintf("/api/payment-methods/%d", m.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func checkoutBody() checkoutRequest {
	return checkoutRequest{
		Items: []checkoutItemRequest{
			{ProductID: "waffle", Quantity: 2, UnitPrice: 150.20},
			{ProductID: "cake", Quantity: 1, UnitPrice: 150.00},
		},
		BillingAddressID: 1,
		PaymentMethodID:  1,
		ShippingMethod:   "express",
	}
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t)

	// 300.40 + 150.00 = 450.40 subtotal, express 29, discount 43, 8% tax.
	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	o := decode[orderResponse](t, raw)
	assert.Equal(t, "pending", o.Status)
	assert.InDelta(t, 450.40, o.Subtotal, 0.001)
	assert.InDelta(t, 29.00, o.Shipping, 0.001)
	assert.InDelta(t, 43.00, o.Discount, 0.001)
	assert.InDelta(t, 34.91, o.Tax, 0.001)
	assert.InDelta(t, 471.31, o.Total, 0.001)
	assert.Equal(t, o.BillingAddressID, o.ShippingAddressID)

	// Placing the order clears the cart.
	env.do(t, aliceToken, http.MethodPost, "/api/cart/items", addCartItemRequest{ProductID: "waffle", Quantity: 1})
	resp, raw = env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, raw = env.do(t, aliceToken, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[cartResponse](t, raw).Items)
}

func TestCheckout_Rejections(t *testing.T) {
	env := newTestEnv(t)

	body := checkoutBody()
	body.Items = nil
	resp, _ := env.do(t, aliceToken, http.MethodPost, "/api/checkout", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body = checkoutBody()
	body.BillingAddressID = 2 // Bob's address
	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/checkout", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode[errorBody](t, raw).Message, "not found")

	body = checkoutBody()
	body.ShippingMethod = "teleport"
	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/checkout", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body = checkoutBody()
	body.Items[0].Quantity = -1
	resp, _ = env.do(t, aliceToken, http.MethodPost, "/api/checkout", body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPaymentDecision_FirstOrderApproved(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[orderResponse](t, raw)

	resp, raw = env.do(t, aliceToken, http.MethodGet, fmt.Sprintf("/api/orders/%d/processing", o.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[processingResponse](t, raw)
	assert.NotEmpty(t, p.Phase)

	// Manual trigger resolves immediately and is idempotent.
	resp, raw = env.do(t, aliceToken, http.MethodPost, fmt.Sprintf("/api/orders/%d/payment", o.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[decisionResponse](t, raw)
	assert.Equal(t, "paid", d.Status)

	resp, raw = env.do(t, aliceToken, http.MethodPost, fmt.Sprintf("/api/orders/%d/payment", o.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", decode[decisionResponse](t, raw).Status)

	resp, raw = env.do(t, aliceToken, http.MethodGet, fmt.Sprintf("/api/orders/%d/processing", o.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p = decode[processingResponse](t, raw)
	assert.True(t, p.Done)
	assert.Equal(t, "paid", p.Status)
	assert.InDelta(t, 1.0, p.Progress, 0.001)
}

func TestPaymentDecision_RepeatOrderDeclined(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[orderResponse](t, raw)

	resp, _ = env.do(t, aliceToken, http.MethodPost, fmt.Sprintf("/api/orders/%d/payment", first.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decode[orderResponse](t, raw)

	resp, raw = env.do(t, aliceToken, http.MethodPost, fmt.Sprintf("/api/orders/%d/payment", second.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[decisionResponse](t, raw)
	assert.Equal(t, "declined", d.Status)
}

func TestPaymentDecision_CountdownFires(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[orderResponse](t, raw)

	require.Eventually(t, func() bool {
		_, raw := env.do(t, aliceToken, http.MethodGet, fmt.Sprintf("/api/orders/%d/processing", o.ID), nil)
		return decode[processingResponse](t, raw).Done
	}, 2*time.Second, 20*time.Millisecond)

	resp, raw = env.do(t, aliceToken, http.MethodGet, fmt.Sprintf("/api/orders/%d", o.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", decode[orderResponse](t, raw).Status)
}

func TestOrders_OwnershipScoped(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, aliceToken, http.MethodPost, "/api/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[orderResponse](t, raw)

	resp, _ = env.do(t, bobToken, http.MethodGet, fmt.Sprintf("/api/orders/%d", o.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, bobToken, http.MethodPost, fmt.Sprintf("/api/orders/%d/payment", o.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = env.do(t, bobToken, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]orderResponse](t, raw))

	resp, raw = env.do(t, aliceToken, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]orderResponse](t, raw), 1)
}
