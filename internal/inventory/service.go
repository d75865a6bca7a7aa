// Package inventory decrements stock after capture. Deduction runs at
// most once per order, claimed through the order's stock_deducted flag.
package inventory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
)

type itemLister interface {
	ListItems(ctx context.Context, orderID string) ([]orders.OrderItem, error)
}

type stockStore interface {
	ClaimDeduction(ctx context.Context, orderID string) (bool, error)
	DecrementOne(ctx context.Context, productID string, variantID *string, qty int) error
}

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders      itemLister
	Stock       stockStore
	Remediation publisher // inventory.remediation topic, optional
	ServiceName string
}

// DeductForOrder claims the per-order flag, then decrements each
// (product, variant) row independently. A short row is logged and
// reported for manual remediation; it never blocks the other rows and
// never unwinds the claim, since the payment has already settled.
func (s *Service) DeductForOrder(ctx context.Context, orderID string) error {
	claimed, err := s.Stock.ClaimDeduction(ctx, orderID)
	if err != nil {
		return fmt.Errorf("claim deduction for order %s: %w", orderID, err)
	}
	if !claimed {
		// another caller already deducted this order
		return nil
	}

	items, err := s.Orders.ListItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list items for order %s: %w", orderID, err)
	}

	var failures []orders.DeductionFailure
	for _, it := range items {
		if err := s.Stock.DecrementOne(ctx, it.ProductID, it.VariantID, it.Qty); err != nil {
			log.Printf("inventory: decrement product=%s order=%s qty=%d: %v",
				it.ProductID, orderID, it.Qty, err)
			failures = append(failures, orders.DeductionFailure{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Qty:       it.Qty,
				Reason:    err.Error(),
			})
		}
	}

	if len(failures) > 0 {
		s.publishFailures(orderID, failures)
	}
	return nil
}

func (s *Service) publishFailures(orderID string, failures []orders.DeductionFailure) {
	if s.Remediation == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockDeductionFailed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.StockDeductionFailedPayload{
			OrderID: orderID,
			Items:   failures,
		}),
	}
	s.Remediation.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockDeductionFailed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
