package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/orders"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/payment"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
)

type emailLookup interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// Service is the consumer side: it turns order.paid events into
// confirmation emails. Delivery is fire and forget; every failure is
// logged and the offset still commits, so a broken mailbox can never
// wedge the topic.
type Service struct {
	Users  emailLookup
	Redis  *redis.Client
	Sender Sender
}

func (s *Service) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("notify: bad envelope: %v", err)
		return nil
	}
	if env.EventType != orders.EventOrderPaid {
		return nil
	}

	if s.Redis != nil && env.EventID != "" {
		dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
	if err != nil {
		log.Printf("notify: %v", err)
		return nil
	}

	email, err := s.Users.GetUserEmail(ctx, p.UserID)
	if err != nil {
		log.Printf("notify: lookup email for user %s: %v", p.UserID, err)
		return nil
	}

	subject := fmt.Sprintf("Order %s confirmed", p.OrderID)
	body := fmt.Sprintf(
		"Thanks for your purchase!\n\nOrder %s is confirmed and paid: %s %s.\nWe'll let you know when it ships.\n",
		p.OrderID, payment.FormatCents(p.TotalCents), p.Currency)
	if err := s.Sender.Send(ctx, email, subject, body); err != nil {
		log.Printf("notify: send confirmation for order %s: %v", p.OrderID, err)
	}
	return nil
}
