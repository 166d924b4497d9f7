package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultRules() Rules {
	return Rules{
		EarnDivisor:    1000,
		RedemptionRate: 50,
		MinRedemption:  10,
		DiscountCapPct: 50,
	}
}

func TestPointsEarned(t *testing.T) {
	r := defaultRules()

	tests := []struct {
		total int64
		want  int64
	}{
		{0, 0},
		{-500, 0},
		{999, 0},
		{1000, 1},
		{1999, 1}, // floor, tidak pernah rounding up
		{250000, 250},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.PointsEarned(tt.total), "total=%d", tt.total)
	}
}

func TestPointsDiscount(t *testing.T) {
	r := defaultRules()
	assert.Equal(t, int64(0), r.PointsDiscount(0))
	assert.Equal(t, int64(0), r.PointsDiscount(-5))
	assert.Equal(t, int64(500), r.PointsDiscount(10))
	assert.Equal(t, int64(7500), r.PointsDiscount(150))
}

func TestValidateRedemption(t *testing.T) {
	r := defaultRules()

	tests := []struct {
		name            string
		points, balance int64
		subtotal        int64
		wantErr         error
	}{
		{"zero points", 0, 1000, 100000, ErrInvalidPoints},
		{"negative points", -10, 1000, 100000, ErrInvalidPoints},
		{"below minimum", 5, 1000, 100000, ErrBelowMinimum},
		{"exceeds balance", 200, 100, 1000000, ErrInsufficientBalance},
		{"ok", 100, 1000, 100000, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateRedemption(tt.points, tt.balance, tt.subtotal)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// Redeem 150 poin (rate 50/poin) lawan subtotal 225 dengan cap 50%:
// diskon maksimum cuma 112, jadi harus gagal ExceedsCap — bukan dipotong diam-diam.
func TestValidateRedemptionCapScenario(t *testing.T) {
	r := defaultRules()

	err := r.ValidateRedemption(150, 1000, 225)
	assert.ErrorIs(t, err, ErrExceedsCap)

	// 10 poin = diskon 500, cap subtotal 1001 * 50% = 500 — pas muat
	assert.NoError(t, r.ValidateRedemption(10, 1000, 1001))
}
