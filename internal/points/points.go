// Package points: double-entry-style loyalty ledger. Append-only transaction
// log + balance denormalized di profiles; dua-duanya selalu berubah dalam satu
// transaksi yang sama, tidak pernah sendiri-sendiri.
package points

import "errors"

var (
	ErrInvalidPoints       = errors.New("invalid points amount")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrBelowMinimum        = errors.New("points below minimum redemption")
	ErrExceedsCap          = errors.New("discount exceeds cap for this order")
)

type TxType string

const (
	TxEarned   TxType = "earned"
	TxRedeemed TxType = "redeemed"
	TxExpired  TxType = "expired"
)

// Rules: parameter bisnis loyalty, diisi dari config.
type Rules struct {
	EarnDivisor    int64 // 1 poin per EarnDivisor unit belanja
	RedemptionRate int64 // nilai diskon (unit terkecil) per poin
	MinRedemption  int64 // floor jumlah poin sekali redeem
	DiscountCapPct int64 // diskon maksimum sebagai persen subtotal
}

// PointsEarned = floor(orderTotal / EarnDivisor). Tidak pernah rounding up.
func (r Rules) PointsEarned(orderTotal int64) int64 {
	if orderTotal <= 0 || r.EarnDivisor <= 0 {
		return 0
	}
	return orderTotal / r.EarnDivisor
}

// PointsDiscount: nilai diskon untuk poin yang di-redeem.
func (r Rules) PointsDiscount(points int64) int64 {
	if points <= 0 {
		return 0
	}
	return points * r.RedemptionRate
}

// ValidateRedemption: pre-check murni sebelum redeem atomik. Tidak menyentuh
// store; balance yang dipakai tetap di-re-check oleh conditional update.
func (r Rules) ValidateRedemption(points, balance, orderSubtotal int64) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	if points < r.MinRedemption {
		return ErrBelowMinimum
	}
	if points > balance {
		return ErrInsufficientBalance
	}
	if r.PointsDiscount(points) > orderSubtotal*r.DiscountCapPct/100 {
		return ErrExceedsCap
	}
	return nil
}
