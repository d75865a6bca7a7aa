package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPaid            = "OrderPaid"
	EventPaymentFailed        = "PaymentFailed"
	EventStockDeductionFailed = "StockDeductionFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPaidPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	ProviderRef string `json:"provider_ref"`
	TotalCents  int64  `json:"total_cents"`
	Currency    string `json:"currency"`
}

type PaymentFailedPayload struct {
	OrderID     string `json:"order_id"`
	ProviderRef string `json:"provider_ref"`
	Reason      string `json:"reason"` // e.g. AMOUNT_MISMATCH, CAPTURE_DENIED
}

type DeductionFailure struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Qty       int     `json:"qty"`
	Reason    string  `json:"reason"`
}

// StockDeductionFailedPayload flags rows that could not be decremented
// after capture, for manual remediation. The order stays PAID.
type StockDeductionFailedPayload struct {
	OrderID string             `json:"order_id"`
	Items   []DeductionFailure `json:"items"`
}
