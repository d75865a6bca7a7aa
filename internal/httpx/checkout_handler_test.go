package httpx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/payment"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/recon"
)

type staticResolver map[string]string

func (s staticResolver) UserID(_ context.Context, token string) (string, error) {
	return s[token], nil
}

func captureRouter(fr *fakeRecon) *chi.Mux {
	r := chi.NewRouter()
	h := &CheckoutHandler{Recon: fr}
	h.Register(r, Auth(staticResolver{"tok-1": "user-1"}))
	return r
}

func postCapture(r *chi.Mux, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout/capture", bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCaptureRequiresSession(t *testing.T) {
	fr := &fakeRecon{}
	r := captureRouter(fr)

	w := postCapture(r, `{"provider_reference":"ref-1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postCapture(r, `{"provider_reference":"ref-1"}`, "unknown-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Zero(t, fr.reconcileCalls)
}

func TestCaptureHappyPath(t *testing.T) {
	fr := &fakeRecon{res: recon.Result{OrderID: "ord-1", Status: orders.StatusPaid}}
	w := postCapture(captureRouter(fr), `{"provider_reference":"ref-1"}`, "tok-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id":"ord-1","status":"PAID"}`, w.Body.String())
	assert.Equal(t, "ref-1", fr.lastRef)
}

func TestCaptureMissingReference(t *testing.T) {
	fr := &fakeRecon{}
	w := postCapture(captureRouter(fr), `{}`, "tok-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fr.reconcileCalls)
}

type fakeLedger struct {
	order       *orders.Order
	createErr   error
	createCalls int
	gotUser     string
	gotItems    []orders.NewItem
	gotAddr     orders.Address
	boundID     string
	boundRef    string
}

func (f *fakeLedger) CreatePendingOrder(_ context.Context, userID string, items []orders.NewItem, addr orders.Address, _ string, _ orders.PricingConfig) (*orders.Order, error) {
	f.createCalls++
	f.gotUser, f.gotItems, f.gotAddr = userID, items, addr
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.order, nil
}

func (f *fakeLedger) BindProviderRef(_ context.Context, orderID, ref string) error {
	f.boundID, f.boundRef = orderID, ref
	return nil
}

func (f *fakeLedger) GetOrder(_ context.Context, orderID string) (*orders.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, orders.ErrNotFound
	}
	return f.order, nil
}

type fakeOpener struct {
	ref    string
	err    error
	calls  int
	gotAmt payment.Amount
}

func (f *fakeOpener) CreateTransaction(_ context.Context, _ string, amt payment.Amount) (string, error) {
	f.calls++
	f.gotAmt = amt
	if f.err != nil {
		return "", f.err
	}
	return f.ref, nil
}

func checkoutRouter(fl *fakeLedger, fo *fakeOpener) *chi.Mux {
	r := chi.NewRouter()
	h := &CheckoutHandler{Repo: fl, Provider: fo, Currency: "USD"}
	h.Register(r, Auth(staticResolver{"tok-1": "user-1"}))
	return r
}

func postCreate(r *chi.Mux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout/create", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const createBody = `{
	"items": [{"product_id": "prod-1", "quantity": 2}],
	"shipping_address": {
		"name": "A. Customer", "street": "1 Main St", "city": "Springfield",
		"region": "OR", "postal_code": "97477", "country": "US"
	}
}`

func TestCreateHappyPath(t *testing.T) {
	fl := &fakeLedger{order: &orders.Order{
		ID: "ord-1", UserID: "user-1",
		Status: orders.StatusPending, PaymentStatus: orders.PaymentPending,
		SubtotalCents: 9000, TaxCents: 900, ShippingCents: 1000, TotalCents: 10900,
		Currency: "USD",
	}}
	fo := &fakeOpener{ref: "ref-1"}
	w := postCreate(checkoutRouter(fl, fo), createBody)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{
		"provider_reference": "ref-1",
		"order_id": "ord-1",
		"total_cents": 10900,
		"total": "109.00",
		"currency": "USD"
	}`, w.Body.String())

	// The provider transaction is opened for the total the ledger froze,
	// and the issued reference is bound back to the order.
	assert.Equal(t, payment.Amount{Cents: 10900, Currency: "USD"}, fo.gotAmt)
	assert.Equal(t, "ord-1", fl.boundID)
	assert.Equal(t, "ref-1", fl.boundRef)
	assert.Equal(t, "user-1", fl.gotUser)
	assert.Equal(t, []orders.NewItem{{ProductID: "prod-1", Qty: 2}}, fl.gotItems)
}

func TestCreateRejectedCartOpensNoTransaction(t *testing.T) {
	fl := &fakeLedger{createErr: orders.Invalid("insufficient stock for product prod-1: requested 2, available 1")}
	fo := &fakeOpener{ref: "ref-1"}
	w := postCreate(checkoutRouter(fl, fo), createBody)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock")
	assert.Zero(t, fo.calls, "a rejected cart must never reach the provider")
	assert.Empty(t, fl.boundRef)
}

func TestCreateProviderFailureKeepsPendingOrder(t *testing.T) {
	fl := &fakeLedger{order: &orders.Order{ID: "ord-1", UserID: "user-1", TotalCents: 10900, Currency: "USD"}}
	fo := &fakeOpener{err: &payment.ProviderError{Op: "create transaction", Err: context.DeadlineExceeded}}
	w := postCreate(checkoutRouter(fl, fo), createBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// The orphaned pending order is reported so the client can retry.
	assert.Contains(t, w.Body.String(), "ord-1")
	assert.Empty(t, fl.boundRef)
}

func TestGetOrderOwnership(t *testing.T) {
	fl := &fakeLedger{order: &orders.Order{ID: "ord-1", UserID: "someone-else", Status: orders.StatusPaid}}
	r := checkoutRouter(fl, &fakeOpener{})

	req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	fl.order.UserID = "user-1"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"PAID"}`, w.Body.String())
}

func TestCaptureErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"foreign order", &orders.AuthError{Reason: "order does not belong to caller"}, http.StatusForbidden},
		{"unknown reference", orders.ErrNotFound, http.StatusNotFound},
		{"amount mismatch", &orders.AmountMismatchError{ProviderRef: "ref-1"}, http.StatusBadRequest},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRecon{err: tt.err}
			w := postCapture(captureRouter(fr), `{"provider_reference":"ref-1"}`, "tok-1")
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
