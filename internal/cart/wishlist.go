package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type WishlistItem struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	AddedAt   time.Time `json:"added_at"`
}

// WishlistRepo: set semantics per user — produk yang sudah ada jadi no-op,
// ditahan primary key (user_id, product_id).
type WishlistRepo struct{ DB *pgxpool.Pool }

func (w *WishlistRepo) Add(ctx context.Context, userID, productID string) error {
	_, err := w.DB.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID)
	return err
}

func (w *WishlistRepo) Remove(ctx context.Context, userID, productID string) error {
	_, err := w.DB.Exec(ctx, `
		DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	return err
}

func (w *WishlistRepo) List(ctx context.Context, userID string) ([]WishlistItem, error) {
	rows, err := w.DB.Query(ctx, `
		SELECT user_id, product_id, added_at FROM wishlist_items
		WHERE user_id = $1 ORDER BY added_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WishlistItem
	for rows.Next() {
		var it WishlistItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
