package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/payment"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/recon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
)

// SignatureHeader carries the provider's hex HMAC of the raw body.
const SignatureHeader = "X-Provider-Signature"

// WebhookReconciler is the webhook-facing slice of the reconciler.
type WebhookReconciler interface {
	Reconcile(ctx context.Context, ref string, amt payment.Amount, trigger recon.Trigger) (recon.Result, error)
	ReconcileFailure(ctx context.Context, ref, reason string) error
}

// EventDedup short-circuits provider retries of an event id that
// already ran to a clean outcome. Best effort only: Reconcile stays
// idempotent on its own.
type EventDedup interface {
	Seen(ctx context.Context, id string) bool
	Mark(ctx context.Context, id string)
}

type redisDedup struct{ rdb *redis.Client }

func NewWebhookDedup(rdb *redis.Client) EventDedup { return &redisDedup{rdb: rdb} }

func (d *redisDedup) Seen(ctx context.Context, id string) bool {
	seen, _ := redisx.Exists(ctx, d.rdb, fmt.Sprintf(redisx.KeyDedup, "webhook", id))
	return seen
}

func (d *redisDedup) Mark(ctx context.Context, id string) {
	_ = d.rdb.Set(ctx, fmt.Sprintf(redisx.KeyDedup, "webhook", id), "1", redisx.TTLDedup).Err()
}

type WebhookHandler struct {
	Recon  WebhookReconciler
	Secret []byte
	Dedup  EventDedup
}

// Provider event shapes. Field names follow the provider's payload.
type webhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Resource  webhookResource `json:"resource"`
}

type webhookResource struct {
	ProviderReference string `json:"providerReference"`
	CapturedAmount    string `json:"capturedAmount"`
	CapturedCurrency  string `json:"capturedCurrency"`
	Status            string `json:"status"`
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/payment", h.handle)
}

// handle acks 200 for every structurally valid, authentic event —
// including business-logic rejections — so the provider's retry loop
// only ever re-fires for genuine delivery problems. 400 is reserved for
// malformed or unauthenticated payloads.
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if len(h.Secret) > 0 && !payment.VerifySignature(h.Secret, body, r.Header.Get(SignatureHeader)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad signature"})
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if ev.Resource.ProviderReference == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing providerReference"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if h.Dedup != nil && ev.ID != "" && h.Dedup.Seen(ctx, ev.ID) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	handled := true
	switch {
	case isCaptureCompleted(ev):
		amt, err := payment.ParseDecimal(ev.Resource.CapturedAmount, ev.Resource.CapturedCurrency)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if _, err := h.Recon.Reconcile(ctx, ev.Resource.ProviderReference, amt, recon.TriggerWebhook); err != nil {
			// business rejection: logged, still acked
			log.Printf("webhook: reconcile %s: %v", ev.Resource.ProviderReference, err)
			handled = false
		}
	case isCaptureDenied(ev):
		if err := h.Recon.ReconcileFailure(ctx, ev.Resource.ProviderReference, "CAPTURE_DENIED"); err != nil {
			log.Printf("webhook: capture denied %s: %v", ev.Resource.ProviderReference, err)
			handled = false
		}
	default:
		log.Printf("webhook: ignoring event type %q", ev.EventType)
	}

	// The event id is remembered only after a clean outcome: a failed
	// reconcile must see the provider's redelivery, not a duplicate
	// short-circuit.
	if handled && h.Dedup != nil && ev.ID != "" {
		h.Dedup.Mark(ctx, ev.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func isCaptureCompleted(ev webhookEvent) bool {
	return ev.EventType == "PAYMENT.CAPTURE.COMPLETED" &&
		strings.EqualFold(ev.Resource.Status, "COMPLETED")
}

func isCaptureDenied(ev webhookEvent) bool {
	return ev.EventType == "PAYMENT.CAPTURE.DENIED"
}
