// Package referral: state machine per user yang direferensikan,
// pending -> completed -> rewarded, tepat sekali. Reward dua arah (referrer +
// referee) dicatat lewat primitive transaksi points ledger di dalam satu
// boundary transaksi dengan perubahan status.
package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
)

var (
	ErrAlreadyReferred = errors.New("referee already has a referral")
	ErrSelfReferral    = errors.New("cannot refer yourself")
)

type Referral struct {
	ID                  string     `json:"id"`
	ReferrerID          string     `json:"referrer_id"`
	RefereeID           string     `json:"referee_id"`
	Code                string     `json:"code"`
	Status              Status     `json:"status"`
	RewardValue         int64      `json:"reward_value"`
	RefereeFirstOrderID *string    `json:"referee_first_order_id,omitempty"`
	RewardedAt          *time.Time `json:"rewarded_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type Repo struct {
	DB     *pgxpool.Pool
	Points *points.Repo

	ReferrerReward int64 // poin untuk referrer saat referee belanja pertama
	RefereeBonus   int64 // signup bonus untuk referee, dibayar bareng
}

// Create: satu row per referee, selamanya — duplikat ketahan unique
// constraint, bukan logika baca-dulu.
func (r *Repo) Create(ctx context.Context, referrerID, refereeID, code string) (*Referral, error) {
	if referrerID == refereeID {
		return nil, ErrSelfReferral
	}
	ref := &Referral{
		ID:          uuid.NewString(),
		ReferrerID:  referrerID,
		RefereeID:   refereeID,
		Code:        code,
		Status:      StatusPending,
		RewardValue: r.ReferrerReward,
		CreatedAt:   time.Now().UTC(),
	}
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO referrals (id, referrer_id, referee_id, code, status, reward_value, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		ON CONFLICT (referee_id) DO NOTHING`,
		ref.ID, ref.ReferrerID, ref.RefereeID, ref.Code, ref.RewardValue, ref.CreatedAt)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrAlreadyReferred
	}
	return ref, nil
}

func (r *Repo) ByReferee(ctx context.Context, refereeID string) (*Referral, error) {
	var ref Referral
	err := r.DB.QueryRow(ctx, `
		SELECT id, referrer_id, referee_id, code, status, reward_value, referee_first_order_id, rewarded_at, created_at
		FROM referrals WHERE referee_id = $1`, refereeID).
		Scan(&ref.ID, &ref.ReferrerID, &ref.RefereeID, &ref.Code, &ref.Status, &ref.RewardValue,
			&ref.RefereeFirstOrderID, &ref.RewardedAt, &ref.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ProcessReward: dipanggil di setiap order confirmation. Tanpa referral
// pending untuk referee ini -> no-op (aman dipanggil berulang). Selain itu
// seluruh rangkaian completed -> credit referrer -> credit referee ->
// rewarded jalan dalam satu transaksi; gagal di tengah berarti semua batal,
// referral tidak pernah ketinggalan 'completed' tanpa reward.
func (r *Repo) ProcessReward(ctx context.Context, refereeID, firstOrderID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id, referrerID string
	var reward int64
	err = tx.QueryRow(ctx, `
		SELECT id, referrer_id, reward_value
		FROM referrals
		WHERE referee_id = $1 AND status = 'pending'
		FOR UPDATE`, refereeID).Scan(&id, &referrerID, &reward)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE referrals
		SET status = 'completed', referee_first_order_id = $2
		WHERE id = $1 AND status = 'pending'`, id, firstOrderID)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		// row ke-lock FOR UPDATE, jadi ini harusnya mustahil
		return false, fmt.Errorf("referral %s: pending->completed transition missed", id)
	}

	if err := r.Points.AwardTx(ctx, tx, referrerID, reward, firstOrderID, "referral reward"); err != nil {
		return false, err
	}
	if r.RefereeBonus > 0 {
		if err := r.Points.AwardTx(ctx, tx, refereeID, r.RefereeBonus, firstOrderID, "referral signup bonus"); err != nil {
			return false, err
		}
	}

	ct, err = tx.Exec(ctx, `
		UPDATE referrals
		SET status = 'rewarded', rewarded_at = now()
		WHERE id = $1 AND status = 'completed'`, id)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, fmt.Errorf("referral %s: completed->rewarded transition missed", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
