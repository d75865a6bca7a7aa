// Package recon converges an order to its paid state from two independent
// signals: the client's synchronous capture call and the provider's
// asynchronous webhook. Both transports funnel into one Reconcile; the
// conditional ledger transition decides the single winner.
package recon

import (
	"context"
	"log"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/payment"
)

type Trigger string

const (
	TriggerClient  Trigger = "client"
	TriggerWebhook Trigger = "webhook"
)

type Ledger interface {
	GetByProviderRef(ctx context.Context, ref string) (*orders.Order, error)
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	MarkCancelled(ctx context.Context, orderID string) (bool, error)
}

type StockDeductor interface {
	DeductForOrder(ctx context.Context, orderID string) error
}

type Notifier interface {
	OrderPaid(o *orders.Order)
	PaymentFailed(o *orders.Order, reason string)
}

type Capturer interface {
	CaptureTransaction(ctx context.Context, ref string) (payment.Amount, error)
}

type Result struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
	// AlreadyCaptured: a duplicate signal; no side effects ran this time.
	AlreadyCaptured bool `json:"-"`
}

type Reconciler struct {
	Ledger   Ledger
	Stock    StockDeductor
	Notify   Notifier
	Provider Capturer

	// Strict aborts the transition on amount/currency mismatch. Relaxed
	// mode logs and proceeds.
	Strict bool
	// ToleranceCents defaults to one cent when zero.
	ToleranceCents int64
}

// ClientCapture is the synchronous entry point. It checks ownership,
// performs the outbound capture call, then joins the common path.
func (r *Reconciler) ClientCapture(ctx context.Context, ref, userID string) (Result, error) {
	o, err := r.Ledger.GetByProviderRef(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	if o.UserID != userID {
		return Result{}, &orders.AuthError{Reason: "order does not belong to caller"}
	}
	if o.PaymentStatus == orders.PaymentCaptured {
		return Result{OrderID: o.ID, Status: o.Status, AlreadyCaptured: true}, nil
	}
	amt, err := r.Provider.CaptureTransaction(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	return r.Reconcile(ctx, ref, amt, TriggerClient)
}

// Reconcile is the single convergence path shared by both transports.
// It is safe to invoke any number of times for the same reference.
func (r *Reconciler) Reconcile(ctx context.Context, ref string, amt payment.Amount, trigger Trigger) (Result, error) {
	o, err := r.Ledger.GetByProviderRef(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	// Duplicate signal: done before, succeed with no side effects.
	if o.PaymentStatus == orders.PaymentCaptured {
		return Result{OrderID: o.ID, Status: o.Status, AlreadyCaptured: true}, nil
	}

	if mismatch := r.checkAmount(o, amt); mismatch != nil {
		if r.Strict {
			won, cerr := r.Ledger.MarkCancelled(ctx, o.ID)
			if cerr != nil {
				log.Printf("recon: cancel after mismatch failed for order %s: %v", o.ID, cerr)
			} else if won && r.Notify != nil {
				r.Notify.PaymentFailed(o, "AMOUNT_MISMATCH")
			}
			return Result{}, mismatch
		}
		log.Printf("recon: tolerated %v (trigger=%s)", mismatch, trigger)
	}

	won, err := r.Ledger.MarkPaid(ctx, o.ID)
	if err != nil {
		return Result{}, err
	}
	if !won {
		// A concurrent caller transitioned the row between our read and
		// the conditional update. Re-read and report their outcome.
		cur, err := r.Ledger.GetByProviderRef(ctx, ref)
		if err != nil {
			return Result{}, err
		}
		return Result{
			OrderID:         cur.ID,
			Status:          cur.Status,
			AlreadyCaptured: cur.PaymentStatus == orders.PaymentCaptured,
		}, nil
	}

	o.Status = orders.StatusPaid
	o.PaymentStatus = orders.PaymentCaptured

	// Winner-only side effects. Money has moved: failures here are logged
	// and surfaced for remediation, never rolled back into the response.
	if r.Stock != nil {
		if err := r.Stock.DeductForOrder(ctx, o.ID); err != nil {
			log.Printf("recon: stock deduction failed for order %s: %v", o.ID, err)
		}
	}
	if r.Notify != nil {
		r.Notify.OrderPaid(o)
	}
	return Result{OrderID: o.ID, Status: orders.StatusPaid}, nil
}

// ReconcileFailure handles the provider's capture-denied signal: a still
// pending order moves to CANCELLED. A captured order is left alone.
func (r *Reconciler) ReconcileFailure(ctx context.Context, ref, reason string) error {
	o, err := r.Ledger.GetByProviderRef(ctx, ref)
	if err != nil {
		return err
	}
	if o.PaymentStatus == orders.PaymentCaptured {
		log.Printf("recon: capture-denied for already captured order %s ignored", o.ID)
		return nil
	}
	won, err := r.Ledger.MarkCancelled(ctx, o.ID)
	if err != nil {
		return err
	}
	if won && r.Notify != nil {
		r.Notify.PaymentFailed(o, reason)
	}
	return nil
}

func (r *Reconciler) checkAmount(o *orders.Order, amt payment.Amount) *orders.AmountMismatchError {
	tol := r.ToleranceCents
	if tol == 0 {
		tol = 1
	}
	diff := amt.Cents - o.TotalCents
	if diff < 0 {
		diff = -diff
	}
	if amt.Currency == o.Currency && diff <= tol {
		return nil
	}
	return &orders.AmountMismatchError{
		ProviderRef:  o.ProviderRef,
		WantCents:    o.TotalCents,
		GotCents:     amt.Cents,
		WantCurrency: o.Currency,
		GotCurrency:  amt.Currency,
	}
}
