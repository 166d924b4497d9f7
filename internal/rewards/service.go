// Package rewards: sisi earn dari ledger, dijalankan consumer di belakang
// order confirmation. Satu event order.confirmed men-trigger credit poin
// belanja + state machine referral; dedup by event_id supaya redelivery
// Kafka tidak double-credit.
package rewards

import (
	"context"
	"encoding/json"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/JAAFAR1996/fish-web-sub001/internal/kafka"
	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
)

type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

type PointsAwarder interface {
	Award(ctx context.Context, userID string, pts int64, orderID, description string) error
}

type ReferralProcessor interface {
	ProcessReward(ctx context.Context, refereeID, firstOrderID string) (bool, error)
}

type Notifier interface {
	Notify(userID, kind string, payload any)
}

type Service struct {
	Dedup     Deduper
	Points    PointsAwarder
	Rules     points.Rules
	Referrals ReferralProcessor
	Notifier  Notifier
}

// HandleOrderConfirmed: dipasang sebagai handler consumer.
func (s *Service) HandleOrderConfirmed(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderConfirmed {
		return nil // ignore
	}

	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		log.Printf("rewards dedup check %s: %v", env.EventID, err)
	}
	if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	// poin belanja: floor(total / divisor)
	if earned := s.Rules.PointsEarned(p.Total); earned > 0 {
		if err := s.Points.Award(ctx, p.UserID, earned, p.OrderID, "order points"); err != nil {
			return err
		}
		if s.Notifier != nil {
			s.Notifier.Notify(p.UserID, "points_earned", orders.PointsAwardedPayload{
				UserID: p.UserID, OrderID: p.OrderID, Points: earned,
			})
		}
	}

	// referral: no-op kalau user ini tidak punya referral pending
	rewarded, err := s.Referrals.ProcessReward(ctx, p.UserID, p.OrderID)
	if err != nil {
		return err
	}
	if rewarded && s.Notifier != nil {
		s.Notifier.Notify(p.UserID, "referral_rewarded", orders.ReferralRewardedPayload{
			RefereeID: p.UserID, OrderID: p.OrderID,
		})
	}

	// mark SETELAH proses sukses: gagal transient di atas berarti return error,
	// offset tidak di-commit, dan redelivery masih bisa ngulang kerjanya.
	// Gagal mark doang tidak fatal — state machine referral dan guard balance
	// yang jaga reprocessing tetap aman.
	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		log.Printf("rewards dedup mark %s: %v", env.EventID, err)
	}
	return nil
}
