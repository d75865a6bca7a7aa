package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NewItem struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Qty       int     `json:"quantity"`
}

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, status, payment_status, COALESCE(provider_ref, ''),
	subtotal_cents, tax_cents, shipping_cents, total_cents, currency,
	ship_name, ship_street, ship_city, ship_region, ship_postal_code, ship_country,
	stock_deducted, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentStatus, &o.ProviderRef,
		&o.SubtotalCents, &o.TaxCents, &o.ShippingCents, &o.TotalCents, &o.Currency,
		&o.ShipTo.Name, &o.ShipTo.Street, &o.ShipTo.City, &o.ShipTo.Region,
		&o.ShipTo.PostalCode, &o.ShipTo.Country,
		&o.StockDeducted, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreatePendingOrder builds the order against the live catalog and
// persists order + items in one transaction. All validation and price
// freezing lives in BuildPendingOrder; a build failure returns before
// anything is written. The stock check is a read, not a reservation.
func (r *Repo) CreatePendingOrder(ctx context.Context, userID string, items []NewItem, addr Address, currency string, pricing PricingConfig) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	read := func(ctx context.Context, it NewItem) (CatalogLine, error) {
		var l CatalogLine
		row := tx.QueryRow(ctx, `
			SELECT p.price_cents, v.price_cents, i.quantity
			FROM products p
			LEFT JOIN product_variants v ON v.id = $2 AND v.product_id = p.id
			JOIN inventory i ON i.product_id = p.id AND i.variant_id IS NOT DISTINCT FROM $2
			WHERE p.id = $1`,
			it.ProductID, it.VariantID)
		if err := row.Scan(&l.BasePriceCents, &l.VariantPriceCents, &l.StockQty); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return CatalogLine{}, ErrNotFound
			}
			return CatalogLine{}, err
		}
		return l, nil
	}

	o, lines, err := BuildPendingOrder(ctx, userID, items, addr, currency, pricing, read)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, payment_status,
			subtotal_cents, tax_cents, shipping_cents, total_cents, currency,
			ship_name, ship_street, ship_city, ship_region, ship_postal_code, ship_country)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.UserID, o.Status, o.PaymentStatus,
		o.SubtotalCents, o.TaxCents, o.ShippingCents, o.TotalCents, o.Currency,
		addr.Name, addr.Street, addr.City, addr.Region, addr.PostalCode, addr.Country)
	if err != nil {
		return nil, err
	}

	for _, it := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, variant_id, qty, price_at_purchase_cents)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			it.ID, it.OrderID, it.ProductID, it.VariantID, it.Qty, it.PriceAtPurchaseCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
}

func (r *Repo) GetByProviderRef(ctx context.Context, ref string) (*Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE provider_ref=$1`, ref))
}

// BindProviderRef attaches the provider's transaction id to the order.
// provider_ref has a unique index, so one reference never maps to two
// local orders.
func (r *Repo) BindProviderRef(ctx context.Context, orderID, ref string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET provider_ref=$2, updated_at=now() WHERE id=$1`, orderID, ref)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid is the conditional transition primitive: the row moves to
// PAID/CAPTURED only while it is still PENDING. The returned bool is
// true for the single caller that won the transition; concurrent losers
// see false, never an error.
func (r *Repo) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, updated_at=now()
		WHERE id=$1 AND status=$4`,
		orderID, StatusPaid, PaymentCaptured, StatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// MarkCancelled moves a still-pending order to CANCELLED/FAILED, using
// the same compare-then-set discipline as MarkPaid.
func (r *Repo) MarkCancelled(ctx context.Context, orderID string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, updated_at=now()
		WHERE id=$1 AND status=$4`,
		orderID, StatusCancelled, PaymentFailed, StatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ListItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, variant_id, qty, price_at_purchase_cents
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Qty, &it.PriceAtPurchaseCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := r.DB.QueryRow(ctx, `SELECT email FROM users WHERE id=$1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return email, err
}
