package orders

import (
	"context"

	"github.com/google/uuid"
)

// CatalogLine is the live catalog view of one requested item: the base
// product price, the variant override when one applies, and the stock
// currently on hand for that (product, variant) row.
type CatalogLine struct {
	BasePriceCents    int64
	VariantPriceCents *int64
	StockQty          int64
}

// CatalogReader resolves one requested item against the live catalog.
// ErrNotFound means no such product/variant.
type CatalogReader func(ctx context.Context, it NewItem) (CatalogLine, error)

// UnitPrice picks the effective per-unit price: the variant price when
// set, the base product price otherwise.
func UnitPrice(l CatalogLine) int64 {
	if l.VariantPriceCents != nil {
		return *l.VariantPriceCents
	}
	return l.BasePriceCents
}

// BuildPendingOrder validates the cart and assembles the order with each
// item's unit price frozen from the catalog as it is right now. Nothing
// is written here: any failure — bad address, empty cart, unknown item,
// one short stock row — returns before a single row exists, which is
// what makes creation all-or-nothing.
func BuildPendingOrder(ctx context.Context, userID string, items []NewItem, addr Address, currency string, pricing PricingConfig, read CatalogReader) (*Order, []OrderItem, error) {
	if err := addr.Validate(); err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, Invalid("empty item list")
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, nil, Invalid("invalid quantity for product %s", it.ProductID)
		}
	}

	units := make([]int64, len(items))
	for i, it := range items {
		line, err := read(ctx, it)
		if err == ErrNotFound {
			return nil, nil, Invalid("unknown product or variant: %s", it.ProductID)
		}
		if err != nil {
			return nil, nil, err
		}
		if line.StockQty < int64(it.Qty) {
			return nil, nil, Invalid("insufficient stock for product %s: requested %d, available %d",
				it.ProductID, it.Qty, line.StockQty)
		}
		units[i] = UnitPrice(line)
	}

	var subtotal int64
	for i, it := range items {
		subtotal += units[i] * int64(it.Qty)
	}
	q := ComputeQuote(subtotal, pricing)

	o := &Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		SubtotalCents: q.SubtotalCents,
		TaxCents:      q.TaxCents,
		ShippingCents: q.ShippingCents,
		TotalCents:    q.TotalCents,
		Currency:      currency,
		ShipTo:        addr,
	}
	lines := make([]OrderItem, len(items))
	for i, it := range items {
		lines[i] = OrderItem{
			ID:                   uuid.NewString(),
			OrderID:              o.ID,
			ProductID:            it.ProductID,
			VariantID:            it.VariantID,
			Qty:                  it.Qty,
			PriceAtPurchaseCents: units[i],
		}
	}
	return o, lines, nil
}
