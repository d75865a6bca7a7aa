package orders

import "time"

type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Variant overrides the base product price when PriceCents is non-nil.
type Variant struct {
	ID         string
	ProductID  string
	Name       string
	PriceCents *int64
}

type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID            string
	UserID        string
	Status        Status
	PaymentStatus PaymentStatus
	ProviderRef   string // transaction id issued by the payment provider, unique
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
	Currency      string
	ShipTo        Address
	StockDeducted bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	VariantID *string
	Qty       int
	// Unit price frozen at order creation; never recomputed from the catalog.
	PriceAtPurchaseCents int64
}
