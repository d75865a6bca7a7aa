package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrShortStock: the inventory row is missing or its quantity is below
// the requested decrement. Rows never go negative.
var ErrShortStock = errors.New("inventory row missing or short")

type StockRepo struct{ DB *pgxpool.Pool }

// ClaimDeduction flips the per-order stock_deducted flag. Exactly one
// caller per order gets true; everyone else gets false. This is the
// at-most-once guard for deduction.
func (r *StockRepo) ClaimDeduction(ctx context.Context, orderID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET stock_deducted=TRUE, updated_at=now()
		WHERE id=$1 AND stock_deducted=FALSE`, orderID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// DecrementOne takes qty units off a single (product, variant) row. Each
// decrement is its own atomic statement; the quantity guard keeps the
// counter non-negative without a prior read.
func (r *StockRepo) DecrementOne(ctx context.Context, productID string, variantID *string, qty int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE inventory SET quantity = quantity - $3, updated_at=now()
		WHERE product_id=$1 AND variant_id IS NOT DISTINCT FROM $2 AND quantity >= $3`,
		productID, variantID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrShortStock
	}
	return nil
}
