package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JAAFAR1996/fish-web-sub001/internal/cart"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

var ErrEmptyCart = errors.New("active cart is empty")

type Repo struct {
	DB     *pgxpool.Pool
	Stock  *stock.Ledger
	Points *points.Repo
	Cart   *cart.Repo

	FreeShippingMin int64
	FlatShippingFee int64
}

type ConfirmInput struct {
	ExternalID   string `json:"external_id"`
	UserID       string `json:"user_id"`
	RedeemPoints int64  `json:"redeem_points"` // 0 = tidak pakai poin
}

type Confirmation struct {
	OrderID        string      `json:"order_id"`
	Subtotal       int64       `json:"subtotal"`
	Shipping       int64       `json:"shipping"`
	Discount       int64       `json:"discount"`
	Total          int64       `json:"total"`
	PointsRedeemed int64       `json:"points_redeemed,omitempty"`
	Items          []ItemPrice `json:"items"`
	Idempotent     bool        `json:"idempotent"`
}

// ConfirmOrder: konfirmasi final dalam satu transaksi — harga dihitung
// server-side lewat resolver (bukan dari client), stok flash sale & produk
// di-reserve lewat conditional update, poin di-redeem dengan guard balance,
// cart pindah ke converted. Gagal di langkah mana pun = semuanya rollback.
// Idempotent via external_id: request ulang balikin order yang sudah ada,
// isi response-nya sama dengan konfirmasi pertama.
func (r *Repo) ConfirmOrder(ctx context.Context, in ConfirmInput) (*Confirmation, error) {
	// cek existing by external_id
	c, err := r.byExternalID(ctx, in.ExternalID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock cart active supaya checkout konkuren user yang sama serial
	var cartID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM carts WHERE user_id=$1 AND status='active' FOR UPDATE`,
		in.UserID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity FROM cart_items
		WHERE cart_id=$1 AND NOT saved_for_later`, cartID)
	if err != nil {
		return nil, err
	}
	type line struct {
		productID string
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now().UTC()
	var subtotal int64
	items := make([]ItemPrice, 0, len(lines))

	for _, l := range lines {
		var listPrice int64
		if err := tx.QueryRow(ctx, `SELECT price FROM products WHERE id=$1`, l.productID).Scan(&listPrice); err != nil {
			return nil, err
		}
		unit := listPrice

		// flash sale aktif: pakai flash price + reserve unit dari pool-nya
		var fsID string
		var flashPrice int64
		err := tx.QueryRow(ctx, `
			SELECT id, flash_price FROM flash_sales
			WHERE product_id=$1 AND is_active AND starts_at <= $2 AND ends_at > $2
			ORDER BY starts_at DESC LIMIT 1`, l.productID, now).Scan(&fsID, &flashPrice)
		switch {
		case err == nil:
			if err := r.Stock.ReserveFlashSaleUnitsTx(ctx, tx, fsID, l.qty); err != nil {
				return nil, err
			}
			unit = flashPrice
		case errors.Is(err, pgx.ErrNoRows):
			// tidak ada promo, harga list
		default:
			return nil, err
		}

		if err := r.Stock.ReserveProductStockTx(ctx, tx, l.productID, l.qty); err != nil {
			return nil, err
		}

		subtotal += int64(l.qty) * unit
		items = append(items, ItemPrice{ProductID: l.productID, Qty: l.qty, UnitPrice: unit})
	}

	shipping := r.FlatShippingFee
	if subtotal >= r.FreeShippingMin || subtotal == 0 {
		shipping = 0
	}

	orderID := uuid.NewString()

	var discount int64
	if in.RedeemPoints > 0 {
		var balance int64
		err := tx.QueryRow(ctx, `
			SELECT loyalty_points_balance FROM profiles WHERE user_id=$1`, in.UserID).Scan(&balance)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if err := r.Points.Rules.ValidateRedemption(in.RedeemPoints, balance, subtotal); err != nil {
			return nil, err
		}
		if err := r.Points.RedeemTx(ctx, tx, in.UserID, in.RedeemPoints, orderID, "redeemed at checkout"); err != nil {
			return nil, err
		}
		discount = r.Points.Rules.PointsDiscount(in.RedeemPoints)
	}

	total := subtotal + shipping - discount
	if total < 0 {
		total = 0
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, external_id, user_id, status, subtotal, shipping, discount, points_redeemed, total)
		VALUES ($1, $2, $3, 'CONFIRMED', $4, $5, $6, $7, $8)`,
		orderID, in.ExternalID, in.UserID, subtotal, shipping, discount, in.RedeemPoints, total); err != nil {
		// dua request pertama barengan dengan external_id sama: yang kalah
		// nabrak unique constraint — balikin order milik pemenang, bukan 500
		if isUniqueViolation(err) {
			_ = tx.Rollback(ctx)
			if c, rerr := r.byExternalID(ctx, in.ExternalID); rerr == nil && c != nil {
				return c, nil
			}
			return nil, err
		}
		return nil, err
	}
	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, qty, unit_price)
			VALUES ($1, $2, $3, $4)`, orderID, it.ProductID, it.Qty, it.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := r.Cart.MarkConvertedTx(ctx, tx, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &Confirmation{
		OrderID:        orderID,
		Subtotal:       subtotal,
		Shipping:       shipping,
		Discount:       discount,
		Total:          total,
		PointsRedeemed: in.RedeemPoints,
		Items:          items,
	}, nil
}

// byExternalID: replay idempotent — dibaca lengkap (termasuk items) supaya
// response request ulang identik dengan konfirmasi pertama. (nil, nil) kalau
// order-nya belum ada.
func (r *Repo) byExternalID(ctx context.Context, externalID string) (*Confirmation, error) {
	var c Confirmation
	err := r.DB.QueryRow(ctx, `
		SELECT id, subtotal, shipping, discount, points_redeemed, total
		FROM orders WHERE external_id=$1`, externalID).
		Scan(&c.OrderID, &c.Subtotal, &c.Shipping, &c.Discount, &c.PointsRedeemed, &c.Total)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, unit_price FROM order_items WHERE order_id=$1 ORDER BY id`, c.OrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it ItemPrice
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.UnitPrice); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.Idempotent = true
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
