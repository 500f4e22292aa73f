package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"stationery-storefront/internal/client"
	"stationery-storefront/internal/config"
	"stationery-storefront/internal/events"
	"stationery-storefront/internal/gateway"
	"stationery-storefront/internal/logger"
	"stationery-storefront/internal/repository"
	"stationery-storefront/internal/server"
	"stationery-storefront/internal/service"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.InitDB(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("init order store", "err", err)
		os.Exit(1)
	}

	idempotency := repository.NewIdempotencyStore(db, cfg.Checkout.IdempotencyInFlightTTL)
	rdb, err := client.InitRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Error("init redis", "err", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		idempotency = repository.NewRedisIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		log.Info("idempotency keys kept in redis", "addr", cfg.Redis.Addr)
	}

	publisher, err := events.New(&cfg.Events, log)
	if err != nil {
		log.Error("init event publisher", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()

	phonepeClient := client.NewPhonePeClient(&cfg.PhonePe)
	paypalClient := client.NewPaypalClient(&cfg.Paypal)
	phonepe := gateway.NewPhonePe(phonepeClient)
	paypal := gateway.NewPayPal(paypalClient)

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	if cfg.Checkout.SeedCatalog {
		if err := productRepo.Seed(ctx); err != nil {
			log.Error("seed catalog", "err", err)
			os.Exit(1)
		}
	}

	reconciler := service.NewReconcilerService(phonepe, orderRepo, publisher, service.SweepPolicy{
		Interval: cfg.Checkout.SweepInterval,
		MinAge:   cfg.Checkout.SweepMinAge,
		MaxAge:   cfg.Checkout.SweepMaxAge,
		Batch:    cfg.Checkout.SweepBatch,
	}, log)
	checkout := service.NewCheckoutService(phonepe, orderRepo, idempotency, service.CheckoutOptions{
		Currency:       cfg.Checkout.DefaultCurrency,
		Environment:    phonepeClient.Environment(),
		PersistRetries: cfg.Checkout.PersistRetries,
	}, log)
	callbacks := service.NewCallbackService(
		cfg.PhonePe.CallbackUsername, cfg.PhonePe.CallbackPassword,
		orderRepo,
		webhookEventRepo,
		reconciler,
		log,
	)
	if cfg.PhonePe.CallbackUsername == "" || cfg.PhonePe.CallbackPassword == "" {
		log.Warn("phonepe callback credentials not set, every callback will be rejected")
	}

	srv := server.NewServer(cfg.HTTP, cfg.Auth.JWTSecret, server.Services{
		Checkout:   checkout,
		Reconciler: reconciler,
		Callback:   callbacks,
		Paypal:     service.NewPaypalService(paypal, orderRepo, reconciler, log),
		Catalog:    service.NewCatalogService(productRepo, decimal.NewFromFloat(cfg.Checkout.MinimumPurchase)),
		User:       service.NewUserService(userRepo),
		Order:      service.NewOrderService(orderRepo),
	}, log)

	go reconciler.RunSweeper(ctx)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}
	if err := checkout.Shutdown(shutdownCtx); err != nil {
		log.Error("background order writes did not finish", "err", err)
	}
}
