package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        TxType    `json:"type"`
	Points      int64     `json:"points"` // positif untuk earned, negatif untuk redeemed/expired
	OrderID     *string   `json:"order_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repo struct {
	DB    *pgxpool.Pool
	Rules Rules
}

func (r *Repo) Balance(ctx context.Context, userID string) (int64, error) {
	var b int64
	err := r.DB.QueryRow(ctx,
		`SELECT loyalty_points_balance FROM profiles WHERE user_id=$1`, userID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return b, err
}

// Award: credit poin. Balance update + baris ledger commit bareng atau
// dua-duanya batal.
func (r *Repo) Award(ctx context.Context, userID string, pts int64, orderID, description string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.AwardTx(ctx, tx, userID, pts, orderID, description); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AwardTx: primitive credit yang ikut transaksi caller — dipakai referral
// reward supaya semua sub-step share satu boundary transaksi.
func (r *Repo) AwardTx(ctx context.Context, tx pgx.Tx, userID string, pts int64, orderID, description string) error {
	if pts <= 0 {
		return ErrInvalidPoints
	}
	// upsert profile dulu biar user baru langsung punya balance row
	ct, err := tx.Exec(ctx, `
		INSERT INTO profiles (user_id, loyalty_points_balance) VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET loyalty_points_balance = profiles.loyalty_points_balance + $2, updated_at = now()`,
		userID, pts)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("award points: no profile row touched for user %s", userID)
	}
	return insertLedgerRow(ctx, tx, userID, TxEarned, pts, orderID, description)
}

// Redeem: debit poin dengan guard balance >= pts di WHERE clause. Kalau
// conditional decrement kena nol row → rollback + ErrInsufficientBalance;
// baris ledger tidak pernah masuk tanpa perubahan balance yang sukses.
func (r *Repo) Redeem(ctx context.Context, userID string, pts int64, orderID, description string) (discount int64, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.RedeemTx(ctx, tx, userID, pts, orderID, description); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return r.Rules.PointsDiscount(pts), nil
}

// RedeemTx: varian di dalam transaksi checkout.
func (r *Repo) RedeemTx(ctx context.Context, tx pgx.Tx, userID string, pts int64, orderID, description string) error {
	if pts <= 0 {
		return ErrInvalidPoints
	}
	ct, err := tx.Exec(ctx, `
		UPDATE profiles
		SET loyalty_points_balance = loyalty_points_balance - $2, updated_at = now()
		WHERE user_id = $1 AND loyalty_points_balance >= $2`, userID, pts)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return insertLedgerRow(ctx, tx, userID, TxRedeemed, -pts, orderID, description)
}

func insertLedgerRow(ctx context.Context, tx pgx.Tx, userID string, typ TxType, pts int64, orderID, description string) error {
	var oid any
	if orderID != "" {
		oid = orderID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO loyalty_points_transactions (id, user_id, type, points, order_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), userID, typ, pts, oid, description)
	return err
}

func (r *Repo) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, type, points, order_id, description, created_at
		FROM loyalty_points_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Points, &t.OrderID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ExpireOlderThan: sweep poin yang earned sebelum cutoff dan belum kepakai.
// Approx FIFO: sisa earning lama = earned_sebelum_cutoff + sum(debit).
// Per user satu transaksi: lock balance, debit min(balance, expirable),
// catat baris ledger 'expired' — pola guarded yang sama dengan redeem.
func (r *Repo) ExpireOlderThan(ctx context.Context, cutoff time.Time) (users int, expired int64, err error) {
	rows, err := r.DB.Query(ctx, `
		SELECT user_id,
		       GREATEST(0,
		           COALESCE(SUM(points) FILTER (WHERE type = 'earned' AND created_at < $1), 0)
		         + COALESCE(SUM(points) FILTER (WHERE points < 0), 0)
		       ) AS expirable
		FROM loyalty_points_transactions
		GROUP BY user_id`, cutoff)
	if err != nil {
		return 0, 0, err
	}
	type cand struct {
		userID    string
		expirable int64
	}
	var cands []cand
	for rows.Next() {
		var c cand
		if err := rows.Scan(&c.userID, &c.expirable); err != nil {
			rows.Close()
			return 0, 0, err
		}
		if c.expirable > 0 {
			cands = append(cands, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	for _, c := range cands {
		n, e := r.expireForUser(ctx, c.userID, c.expirable)
		if e != nil {
			return users, expired, e
		}
		if n > 0 {
			users++
			expired += n
		}
	}
	return users, expired, nil
}

func (r *Repo) expireForUser(ctx context.Context, userID string, expirable int64) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT loyalty_points_balance FROM profiles WHERE user_id=$1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	applied := expirable
	if balance < applied {
		applied = balance
	}
	if applied <= 0 {
		return 0, nil
	}

	ct, err := tx.Exec(ctx, `
		UPDATE profiles
		SET loyalty_points_balance = loyalty_points_balance - $2, updated_at = now()
		WHERE user_id = $1 AND loyalty_points_balance >= $2`, userID, applied)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		// balance berubah di antara SELECT dan UPDATE? harusnya tidak bisa
		// karena FOR UPDATE; kalau kejadian berarti bug logika.
		return 0, fmt.Errorf("expire points: guarded decrement missed for user %s", userID)
	}
	if err := insertLedgerRow(ctx, tx, userID, TxExpired, -applied, "", "points expired"); err != nil {
		return 0, err
	}
	return applied, tx.Commit(ctx)
}
