package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store: write path cart yang account-bound. Dipisah interface supaya
// service bisa dites dengan store in-memory.
type Store interface {
	ActiveCart(ctx context.Context, userID string) (*Cart, error)
	ItemQuantity(ctx context.Context, cartID, productID string) (int, error)
	UpsertItem(ctx context.Context, cartID, productID string, qty int, unitPrice int64) error
	DeleteItem(ctx context.Context, cartID, productID string) error
	Items(ctx context.Context, cartID string) ([]Item, error)
	SyncUnitPrice(ctx context.Context, cartID, productID string, unitPrice int64) error
	SetSavedForLater(ctx context.Context, cartID, productID string, saved bool) error
}

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// ActiveCart: get-or-create. Partial unique index di carts jamin maksimal
// satu cart active per user; insert yang kalah race jatuh ke DO NOTHING.
func (r *Repo) ActiveCart(ctx context.Context, userID string) (*Cart, error) {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO carts (id, user_id, status) VALUES ($1, $2, 'active')
		ON CONFLICT (user_id) WHERE status = 'active' DO NOTHING`,
		uuid.NewString(), userID)
	if err != nil {
		return nil, err
	}
	var c Cart
	err = r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM carts WHERE user_id = $1 AND status = 'active'`, userID).
		Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) ItemQuantity(ctx context.Context, cartID, productID string) (int, error) {
	var q int
	err := r.DB.QueryRow(ctx, `
		SELECT quantity FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID).Scan(&q)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return q, err
}

func (r *Repo) UpsertItem(ctx context.Context, cartID, productID string, qty int, unitPrice int64) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price, updated_at = now()`,
		cartID, productID, qty, unitPrice)
	return err
}

// DeleteItem: qty <= 0 tidak pernah disimpan sebagai row nol — row-nya dihapus.
func (r *Repo) DeleteItem(ctx context.Context, cartID, productID string) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	return err
}

func (r *Repo) Items(ctx context.Context, cartID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT cart_id, product_id, quantity, unit_price, saved_for_later, added_at, updated_at
		FROM cart_items WHERE cart_id = $1 ORDER BY added_at`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.CartID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.SavedForLater, &it.AddedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) SyncUnitPrice(ctx context.Context, cartID, productID string, unitPrice int64) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET unit_price = $3, updated_at = now()
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID, unitPrice)
	return err
}

func (r *Repo) SetSavedForLater(ctx context.Context, cartID, productID string, saved bool) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET saved_for_later = $3, updated_at = now()
		WHERE cart_id = $1 AND product_id = $2`, cartID, productID, saved)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("cart item not found: %s", productID)
	}
	return nil
}

// MarkConvertedTx: transisi active -> converted di dalam transaksi checkout.
// Guard status di WHERE — status cuma jalan maju.
func (r *Repo) MarkConvertedTx(ctx context.Context, tx pgx.Tx, cartID string) error {
	ct, err := tx.Exec(ctx, `
		UPDATE carts SET status = 'converted', updated_at = now()
		WHERE id = $1 AND status = 'active'`, cartID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("cart %s is not active", cartID)
	}
	return nil
}
