package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JAAFAR1996/fish-web-sub001/internal/config"
	kafkax "github.com/JAAFAR1996/fish-web-sub001/internal/kafka"
	"github.com/JAAFAR1996/fish-web-sub001/internal/notify"
	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
	"github.com/JAAFAR1996/fish-web-sub001/internal/postgres"
	"github.com/JAAFAR1996/fish-web-sub001/internal/redisx"
	"github.com/JAAFAR1996/fish-web-sub001/internal/referral"
	"github.com/JAAFAR1996/fish-web-sub001/internal/rewards"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer notifikasi user (fire-and-forget)
	pNotify := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicNotifyUser, 1024)
	pNotify.Start(ctx)

	rules := points.Rules{
		EarnDivisor:    cfg.PointsEarnDivisor,
		RedemptionRate: cfg.PointsRedemptionRate,
		MinRedemption:  cfg.PointsMinRedemption,
		DiscountCapPct: cfg.PointsDiscountCapPct,
	}
	pointsRepo := &points.Repo{DB: db, Rules: rules}
	referralRepo := &referral.Repo{
		DB:             db,
		Points:         pointsRepo,
		ReferrerReward: cfg.ReferrerRewardPoints,
		RefereeBonus:   cfg.RefereeBonusPoints,
	}

	svc := &rewards.Service{
		Dedup:     &redisx.Deduper{R: rdb, Service: cfg.ServiceName + "-ledger"},
		Points:    pointsRepo,
		Rules:     rules,
		Referrals: referralRepo,
		Notifier:  &notify.Dispatcher{Producer: pNotify, Service: cfg.ServiceName + "-ledger"},
	}

	group := getenv("LEDGER_GROUP", "ledger-svc")
	workers := mustAtoi(os.Getenv("LEDGER_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderConfirmed, workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("ledger consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderConfirmed, workers)
		return cons.Start(gctx, svc.HandleOrderConfirmed)
	})

	// sweep expiry poin sekali sehari
	g.Go(func() error {
		t := time.NewTicker(24 * time.Hour)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				cutoff := time.Now().UTC().AddDate(0, 0, -cfg.PointsExpiryDays)
				users, expired, err := pointsRepo.ExpireOlderThan(gctx, cutoff)
				if err != nil {
					log.Printf("points expiry sweep: %v", err)
					continue
				}
				if users > 0 {
					log.Printf("points expiry sweep: %d users, %d points expired", users, expired)
				}
			}
		}
	})

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down ledger...")
	case <-gctx.Done():
	}
	cancel()
	if err := g.Wait(); err != nil {
		log.Printf("ledger exit: %v", err)
	}
	pNotify.Close()
	pNotify.WaitClosed()
}
