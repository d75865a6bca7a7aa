package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testPricing = PricingConfig{
	TaxRateBps:        1000, // 10%
	FreeShippingCents: 10000,
	FlatShippingCents: 1000,
}

func TestComputeQuote(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		want     Quote
	}{
		{
			// $90 subtotal: 10% tax, below the free-shipping threshold
			name:     "below free shipping threshold",
			subtotal: 9000,
			want:     Quote{SubtotalCents: 9000, TaxCents: 900, ShippingCents: 1000, TotalCents: 10900},
		},
		{
			name:     "at free shipping threshold",
			subtotal: 10000,
			want:     Quote{SubtotalCents: 10000, TaxCents: 1000, ShippingCents: 0, TotalCents: 11000},
		},
		{
			name:     "just under the threshold",
			subtotal: 9999,
			want:     Quote{SubtotalCents: 9999, TaxCents: 1000, ShippingCents: 1000, TotalCents: 11999},
		},
		{
			name:     "zero subtotal",
			subtotal: 0,
			want:     Quote{SubtotalCents: 0, TaxCents: 0, ShippingCents: 1000, TotalCents: 1000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeQuote(tt.subtotal, testPricing)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.TotalCents, got.SubtotalCents+got.TaxCents+got.ShippingCents,
				"total must always equal subtotal + tax + shipping")
		})
	}
}

func TestComputeQuoteTaxRoundsHalfUp(t *testing.T) {
	// 10% of $0.05 = half a cent, rounds up
	q := ComputeQuote(5, testPricing)
	assert.Equal(t, int64(1), q.TaxCents)

	// 10% of $0.04 = 0.4 cent, rounds down
	q = ComputeQuote(4, testPricing)
	assert.Equal(t, int64(0), q.TaxCents)
}

func TestAddressValidate(t *testing.T) {
	full := Address{
		Name:       "A. Customer",
		Street:     "1 Main St",
		City:       "Springfield",
		Region:     "OR",
		PostalCode: "97477",
		Country:    "US",
	}
	assert.NoError(t, full.Validate())

	drop := func(mut func(*Address)) Address {
		a := full
		mut(&a)
		return a
	}
	cases := map[string]Address{
		"name":        drop(func(a *Address) { a.Name = "" }),
		"street":      drop(func(a *Address) { a.Street = "" }),
		"city":        drop(func(a *Address) { a.City = "" }),
		"region":      drop(func(a *Address) { a.Region = "" }),
		"postal_code": drop(func(a *Address) { a.PostalCode = "" }),
		"country":     drop(func(a *Address) { a.Country = "" }),
	}
	for field, addr := range cases {
		t.Run(field, func(t *testing.T) {
			err := addr.Validate()
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), field)
		})
	}
}
