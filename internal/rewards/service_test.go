package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
)

type fakeDedup struct{ seen map[string]bool }

func (f *fakeDedup) Seen(ctx context.Context, id string) (bool, error) { return f.seen[id], nil }
func (f *fakeDedup) Mark(ctx context.Context, id string) error {
	f.seen[id] = true
	return nil
}

type awardCall struct {
	userID  string
	pts     int64
	orderID string
}

type fakeAwarder struct{ calls []awardCall }

func (f *fakeAwarder) Award(ctx context.Context, userID string, pts int64, orderID, description string) error {
	f.calls = append(f.calls, awardCall{userID, pts, orderID})
	return nil
}

// fakeReferrals model-nya perilaku DB: referral pending di-reward sekali,
// panggilan berikutnya no-op.
type fakeReferrals struct {
	rewarded map[string]bool
	calls    int
}

func (f *fakeReferrals) ProcessReward(ctx context.Context, refereeID, firstOrderID string) (bool, error) {
	f.calls++
	if f.rewarded[refereeID] {
		return false, nil
	}
	f.rewarded[refereeID] = true
	return true, nil
}

func confirmedEvent(t *testing.T, eventID, orderID, userID string, total int64) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(orders.OrderConfirmedPayload{
		OrderID: orderID, UserID: userID, Total: total,
	})
	require.NoError(t, err)
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventOrderConfirmed,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      payload,
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func newTestService() (*Service, *fakeDedup, *fakeAwarder, *fakeReferrals) {
	dedup := &fakeDedup{seen: map[string]bool{}}
	awarder := &fakeAwarder{}
	refs := &fakeReferrals{rewarded: map[string]bool{}}
	svc := &Service{
		Dedup:     dedup,
		Points:    awarder,
		Rules:     points.Rules{EarnDivisor: 1000, RedemptionRate: 50, MinRedemption: 10, DiscountCapPct: 50},
		Referrals: refs,
	}
	return svc, dedup, awarder, refs
}

func TestHandleOrderConfirmedAwardsPoints(t *testing.T) {
	svc, _, awarder, refs := newTestService()
	ctx := context.Background()

	msg := confirmedEvent(t, "ev1", "o1", "u1", 5500)
	require.NoError(t, svc.HandleOrderConfirmed(ctx, msg))

	require.Len(t, awarder.calls, 1)
	assert.Equal(t, awardCall{"u1", 5, "o1"}, awarder.calls[0]) // floor(5500/1000)
	assert.Equal(t, 1, refs.calls)
}

// Redelivery event yang sama tidak boleh double-credit.
func TestHandleOrderConfirmedDedup(t *testing.T) {
	svc, _, awarder, refs := newTestService()
	ctx := context.Background()

	msg := confirmedEvent(t, "ev1", "o1", "u1", 3000)
	require.NoError(t, svc.HandleOrderConfirmed(ctx, msg))
	require.NoError(t, svc.HandleOrderConfirmed(ctx, msg))

	assert.Len(t, awarder.calls, 1)
	assert.Equal(t, 1, refs.calls)
}

// Dua order beda dari referee yang sama: reward referral cuma jalan di
// order pertama; order kedua tetap dapat poin belanja.
func TestReferralRewardedAtMostOnce(t *testing.T) {
	svc, _, awarder, refs := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderConfirmed(ctx, confirmedEvent(t, "ev1", "o1", "u1", 2000)))
	require.NoError(t, svc.HandleOrderConfirmed(ctx, confirmedEvent(t, "ev2", "o2", "u1", 4000)))

	assert.Len(t, awarder.calls, 2)
	assert.Equal(t, 2, refs.calls)
	assert.True(t, refs.rewarded["u1"])
}

func TestHandleIgnoresOtherEventTypes(t *testing.T) {
	svc, _, awarder, _ := newTestService()

	env := orders.Envelope{EventID: "ev9", EventType: "SomethingElse", Payload: json.RawMessage(`{}`)}
	b, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderConfirmed(context.Background(), kafkago.Message{Value: b}))
	assert.Empty(t, awarder.calls)
}

type flakyAwarder struct {
	fakeAwarder
	failures int
}

func (f *flakyAwarder) Award(ctx context.Context, userID string, pts int64, orderID, description string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("db timeout")
	}
	return f.fakeAwarder.Award(ctx, userID, pts, orderID, description)
}

// Gagal transient pas award: handler return error (offset tidak di-commit)
// dan event TIDAK ke-mark — redelivery berikutnya harus tetap diproses sampai
// credit-nya masuk, bukan di-skip dedup.
func TestTransientAwardFailureRetriesOnRedelivery(t *testing.T) {
	dedup := &fakeDedup{seen: map[string]bool{}}
	awarder := &flakyAwarder{failures: 1}
	refs := &fakeReferrals{rewarded: map[string]bool{}}
	svc := &Service{
		Dedup:     dedup,
		Points:    awarder,
		Rules:     points.Rules{EarnDivisor: 1000, RedemptionRate: 50, MinRedemption: 10, DiscountCapPct: 50},
		Referrals: refs,
	}
	ctx := context.Background()

	msg := confirmedEvent(t, "ev1", "o1", "u1", 3000)
	require.Error(t, svc.HandleOrderConfirmed(ctx, msg))
	assert.False(t, dedup.seen["ev1"], "event yang gagal jangan ke-mark")
	assert.Empty(t, awarder.calls)

	// redelivery dari Kafka
	require.NoError(t, svc.HandleOrderConfirmed(ctx, msg))
	require.Len(t, awarder.calls, 1)
	assert.Equal(t, awardCall{"u1", 3, "o1"}, awarder.calls[0])
	assert.True(t, dedup.seen["ev1"], "mark baru masuk setelah proses sukses")
}

func TestNoPointsForTinyOrder(t *testing.T) {
	svc, _, awarder, _ := newTestService()

	// total di bawah divisor -> 0 poin, tidak ada baris ledger
	require.NoError(t, svc.HandleOrderConfirmed(context.Background(), confirmedEvent(t, "ev1", "o1", "u1", 999)))
	assert.Empty(t, awarder.calls)
}
