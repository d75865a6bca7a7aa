package orders

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("order not found")

// ValidationError rejects bad checkout input: empty cart, incomplete
// address, unknown product, insufficient stock.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AuthError means the caller's session does not own the order.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth: " + e.Reason }

// AmountMismatchError: the captured amount or currency does not match the
// order's frozen total within tolerance.
type AmountMismatchError struct {
	ProviderRef  string
	WantCents    int64
	GotCents     int64
	WantCurrency string
	GotCurrency  string
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch for %s: want %d %s, got %d %s",
		e.ProviderRef, e.WantCents, e.WantCurrency, e.GotCents, e.GotCurrency)
}
