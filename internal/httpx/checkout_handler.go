package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/payment"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/recon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
)

// TransactionOpener is the slice of the provider client the checkout
// path needs.
type TransactionOpener interface {
	CreateTransaction(ctx context.Context, orderID string, amt payment.Amount) (string, error)
}

// CaptureReconciler is the client-capture entry of the reconciler.
type CaptureReconciler interface {
	ClientCapture(ctx context.Context, ref, userID string) (recon.Result, error)
}

// OrderLedger is the slice of the order store the checkout path needs.
// *orders.Repo satisfies it.
type OrderLedger interface {
	CreatePendingOrder(ctx context.Context, userID string, items []orders.NewItem, addr orders.Address, currency string, pricing orders.PricingConfig) (*orders.Order, error)
	BindProviderRef(ctx context.Context, orderID, ref string) error
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type CheckoutHandler struct {
	Repo     OrderLedger
	Provider TransactionOpener
	Recon    CaptureReconciler
	Redis    *redis.Client
	Pricing  orders.PricingConfig
	Currency string
}

type createReq struct {
	Items           []orders.NewItem `json:"items"`
	ShippingAddress orders.Address   `json:"shipping_address"`
}

type createResp struct {
	ProviderReference string `json:"provider_reference"`
	OrderID           string `json:"order_id"`
	TotalCents        int64  `json:"total_cents"`
	Total             string `json:"total"`
	Currency          string `json:"currency"`
}

type captureReq struct {
	ProviderReference string `json:"provider_reference"`
}

func (h *CheckoutHandler) Register(r *chi.Mux, auth func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(auth)
		g.Post("/checkout/create", h.create)
		g.Post("/checkout/capture", h.capture)
		g.Get("/orders/{id}", h.getOrder)
	})
}

func (h *CheckoutHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Repo.CreatePendingOrder(ctx, UserID(r), req.Items, req.ShippingAddress, h.Currency, h.Pricing)
	if err != nil {
		writeError(w, err)
		return
	}

	// The pending order exists before the provider call: a provider
	// failure leaves an orphaned pending order behind, which is accepted
	// and retryable rather than auto-cleaned.
	ref, err := h.Provider.CreateTransaction(ctx, o.ID, payment.Amount{Cents: o.TotalCents, Currency: o.Currency})
	if err != nil {
		writeJSON(w, errStatus(err), map[string]string{"error": err.Error(), "order_id": o.ID})
		return
	}
	if err := h.Repo.BindProviderRef(ctx, o.ID, ref); err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o.ID, o.UserID, orders.StatusPending)
	writeJSON(w, http.StatusCreated, createResp{
		ProviderReference: ref,
		OrderID:           o.ID,
		TotalCents:        o.TotalCents,
		Total:             payment.FormatCents(o.TotalCents),
		Currency:          o.Currency,
	})
}

func (h *CheckoutHandler) capture(w http.ResponseWriter, r *http.Request) {
	var req captureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProviderReference == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing provider_reference"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Recon.ClientCapture(ctx, req.ProviderReference, UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, res.OrderID, UserID(r), res.Status)
	writeJSON(w, http.StatusOK, res)
}

func (h *CheckoutHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB as fallback; the cache key is scoped to the owner
	// so a hit never leaks another user's order
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, h.statusKey(orderID, UserID(r))).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Repo.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if o.UserID != UserID(r) {
		writeError(w, &orders.AuthError{Reason: "order does not belong to caller"})
		return
	}
	h.cacheStatus(ctx, o.ID, o.UserID, o.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status})
}

func (h *CheckoutHandler) statusKey(orderID, userID string) string {
	return fmt.Sprintf(redisx.KeyOrderStatus, userID+":"+orderID)
}

func (h *CheckoutHandler) cacheStatus(ctx context.Context, orderID, userID string, s orders.Status) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Set(ctx, h.statusKey(orderID, userID), fmt.Sprintf(`{"status":%q}`, s), redisx.TTLStatusCache).Err()
}
