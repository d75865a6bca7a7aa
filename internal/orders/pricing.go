package orders

// PricingConfig holds the storefront's fixed pricing rules. Tax is a flat
// rate in basis points; shipping is a flat fee waived above a subtotal
// threshold.
type PricingConfig struct {
	TaxRateBps        int
	FreeShippingCents int64
	FlatShippingCents int64
}

type Quote struct {
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// ComputeQuote derives tax and shipping from a subtotal. Tax rounds half
// up to the nearest cent.
func ComputeQuote(subtotalCents int64, cfg PricingConfig) Quote {
	tax := (subtotalCents*int64(cfg.TaxRateBps) + 5000) / 10000
	ship := cfg.FlatShippingCents
	if subtotalCents >= cfg.FreeShippingCents {
		ship = 0
	}
	return Quote{
		SubtotalCents: subtotalCents,
		TaxCents:      tax,
		ShippingCents: ship,
		TotalCents:    subtotalCents + tax + ship,
	}
}

// Validate checks that every field of the shipping address is present.
// Addresses are validated once here, at order creation, and trusted
// afterwards.
func (a Address) Validate() error {
	fields := []struct {
		name, val string
	}{
		{"name", a.Name},
		{"street", a.Street},
		{"city", a.City},
		{"region", a.Region},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range fields {
		if f.val == "" {
			return Invalid("shipping address missing %s", f.name)
		}
	}
	return nil
}
