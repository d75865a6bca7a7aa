// Package notify carries order outcomes to the customer: the reconciler
// publishes paid/failed events here, and a separate worker turns the
// paid event into a confirmation email. Everything is best effort.
package notify

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
)

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Dispatcher is the reconciler-facing side: it only enqueues events and
// never fails the caller.
type Dispatcher struct {
	Paid    publisher // order.paid
	Failed  publisher // order.payment.failed
	Service string
}

func (d *Dispatcher) OrderPaid(o *orders.Order) {
	if d.Paid == nil {
		return
	}
	d.publish(d.Paid, orders.EventOrderPaid, o.ID, orders.OrderPaidPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		ProviderRef: o.ProviderRef,
		TotalCents:  o.TotalCents,
		Currency:    o.Currency,
	})
}

func (d *Dispatcher) PaymentFailed(o *orders.Order, reason string) {
	if d.Failed == nil {
		return
	}
	d.publish(d.Failed, orders.EventPaymentFailed, o.ID, orders.PaymentFailedPayload{
		OrderID:     o.ID,
		ProviderRef: o.ProviderRef,
		Reason:      reason,
	})
}

func (d *Dispatcher) publish(p publisher, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      d.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
