package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JAAFAR1996/fish-web-sub001/internal/cart"
	"github.com/JAAFAR1996/fish-web-sub001/internal/catalog"
	"github.com/JAAFAR1996/fish-web-sub001/internal/config"
	"github.com/JAAFAR1996/fish-web-sub001/internal/guest"
	"github.com/JAAFAR1996/fish-web-sub001/internal/httpx"
	kafkax "github.com/JAAFAR1996/fish-web-sub001/internal/kafka"
	"github.com/JAAFAR1996/fish-web-sub001/internal/notify"
	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
	"github.com/JAAFAR1996/fish-web-sub001/internal/postgres"
	"github.com/JAAFAR1996/fish-web-sub001/internal/redisx"
	"github.com/JAAFAR1996/fish-web-sub001/internal/referral"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (order.confirmed)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderConfirmed, 1024)
	prod.Start(ctx)

	rules := points.Rules{
		EarnDivisor:    cfg.PointsEarnDivisor,
		RedemptionRate: cfg.PointsRedemptionRate,
		MinRedemption:  cfg.PointsMinRedemption,
		DiscountCapPct: cfg.PointsDiscountCapPct,
	}

	catalogRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	cartSvc := &cart.Service{
		Store:           cartRepo,
		Catalog:         catalogRepo,
		MaxQtyPerLine:   cfg.MaxQtyPerLine,
		FreeShippingMin: cfg.FreeShippingMin,
		FlatShippingFee: cfg.FlatShippingFee,
	}
	wishlistRepo := &cart.WishlistRepo{DB: db}
	guestStore := &guest.Store{R: rdb}
	merger := &guest.Merger{Guest: guestStore, Cart: cartSvc, Wishlist: wishlistRepo}

	pointsRepo := &points.Repo{DB: db, Rules: rules}
	referralRepo := &referral.Repo{
		DB:             db,
		Points:         pointsRepo,
		ReferrerReward: cfg.ReferrerRewardPoints,
		RefereeBonus:   cfg.RefereeBonusPoints,
	}
	orderRepo := &orders.Repo{
		DB:              db,
		Stock:           &stock.Ledger{DB: db},
		Points:          pointsRepo,
		Cart:            cartRepo,
		FreeShippingMin: cfg.FreeShippingMin,
		FlatShippingFee: cfg.FlatShippingFee,
	}
	audit := &notify.Audit{DB: db}

	router := httpx.NewRouter()
	(&httpx.CartHandler{
		Svc: cartSvc, Wishlist: wishlistRepo, Guest: guestStore,
		Merger: merger, Redis: rdb, Audit: audit,
	}).Register(router)
	(&httpx.PointsHandler{Repo: pointsRepo, Audit: audit}).Register(router)
	(&httpx.ReferralHandler{Repo: referralRepo, Audit: audit}).Register(router)
	(&httpx.CheckoutHandler{
		Repo: orderRepo, Producer: prod, Redis: rdb, Audit: audit, Service: cfg.ServiceName,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	cancel()
	prod.WaitClosed()
}
