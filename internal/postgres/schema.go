package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema bikin semua table kalau belum ada. Dipanggil sekali dari main
// sebelum serve; di production sebaiknya diganti migration tool.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			sku TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			price BIGINT NOT NULL,
			original_price BIGINT NOT NULL DEFAULT 0,
			stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
			low_stock_threshold INT NOT NULL DEFAULT 5,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS flash_sales (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL REFERENCES products(id),
			flash_price BIGINT NOT NULL,
			original_price BIGINT NOT NULL,
			stock_limit INT NOT NULL,
			stock_sold INT NOT NULL DEFAULT 0 CHECK (stock_sold >= 0 AND stock_sold <= stock_limit),
			starts_at TIMESTAMPTZ NOT NULL,
			ends_at TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id UUID PRIMARY KEY,
			loyalty_points_balance BIGINT NOT NULL DEFAULT 0 CHECK (loyalty_points_balance >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS loyalty_points_transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('earned','redeemed','expired')),
			points BIGINT NOT NULL,
			order_id UUID,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_tx_user ON loyalty_points_transactions(user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS referrals (
			id UUID PRIMARY KEY,
			referrer_id UUID NOT NULL,
			referee_id UUID NOT NULL UNIQUE,
			code TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','completed','rewarded')),
			reward_value BIGINT NOT NULL DEFAULT 0,
			referee_first_order_id UUID,
			rewarded_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','converted','abandoned')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_one_active ON carts(user_id) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
			product_id UUID NOT NULL REFERENCES products(id),
			quantity INT NOT NULL CHECK (quantity >= 1),
			unit_price BIGINT NOT NULL,
			saved_for_later BOOLEAN NOT NULL DEFAULT false,
			added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (cart_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wishlist_items (
			user_id UUID NOT NULL,
			product_id UUID NOT NULL REFERENCES products(id),
			added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			external_id TEXT UNIQUE NOT NULL,
			user_id UUID NOT NULL,
			status TEXT NOT NULL DEFAULT 'CONFIRMED',
			subtotal BIGINT NOT NULL,
			shipping BIGINT NOT NULL DEFAULT 0,
			discount BIGINT NOT NULL DEFAULT 0,
			points_redeemed BIGINT NOT NULL DEFAULT 0,
			total BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			product_id UUID NOT NULL,
			qty INT NOT NULL,
			unit_price BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id BIGSERIAL PRIMARY KEY,
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			diff JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
