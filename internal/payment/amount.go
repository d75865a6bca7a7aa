package payment

import (
	"fmt"
	"strings"
)

// Amount is money in integer cents plus an ISO currency code. The
// provider wire format is a decimal string ("109.00"); everything local
// stays in cents.
type Amount struct {
	Cents    int64
	Currency string
}

func (a Amount) String() string {
	return FormatCents(a.Cents) + " " + a.Currency
}

// FormatCents renders cents as a two-decimal string for the provider API.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseDecimal converts a provider decimal string into cents. At most two
// fraction digits are accepted; anything else is malformed.
func ParseDecimal(value, currency string) (Amount, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(v, "-") {
		neg = true
		v = v[1:]
	}
	whole, frac := v, ""
	if i := strings.IndexByte(v, '.'); i >= 0 {
		whole, frac = v[:i], v[i+1:]
	}
	if whole == "" || len(frac) > 2 {
		return Amount{}, fmt.Errorf("malformed amount %q", value)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var cents int64
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return Amount{}, fmt.Errorf("malformed amount %q", value)
			}
			cents = cents*10 + int64(c-'0')
		}
	}
	if neg {
		cents = -cents
	}
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if len(cur) != 3 {
		return Amount{}, fmt.Errorf("malformed currency %q", currency)
	}
	return Amount{Cents: cents, Currency: cur}, nil
}
