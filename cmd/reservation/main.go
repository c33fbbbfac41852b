package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/parking-reservation/internal/adapters/gateway"
	"github.com/DanielPopoola/parking-reservation/internal/adapters/handler"
	"github.com/DanielPopoola/parking-reservation/internal/adapters/notifier"
	"github.com/DanielPopoola/parking-reservation/internal/adapters/postgres"
	"github.com/DanielPopoola/parking-reservation/internal/adapters/receipt"
	redisadapter "github.com/DanielPopoola/parking-reservation/internal/adapters/redis"
	"github.com/DanielPopoola/parking-reservation/internal/config"
	"github.com/DanielPopoola/parking-reservation/internal/core/ports"
	"github.com/DanielPopoola/parking-reservation/internal/core/service"
	"github.com/DanielPopoola/parking-reservation/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting reservation service",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(&cfg.Database, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	bookingRepo := postgres.NewBookingRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)

	signer := gateway.NewSigner(cfg.Gateway)
	gatewayClient := gateway.NewRetryGatewayClient(gateway.NewGatewayClient(cfg.Gateway, signer), cfg.Retry)

	notices, closeNotifier, err := notifier.New(cfg.Notifier, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "driver", cfg.Notifier.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeNotifier(); err != nil {
			logger.Error("failed to close notifier", "error", err)
		}
	}()

	clock := service.SystemClock{}
	rules := service.NewRulesResolver(settingsRepo, logger)

	bookingService := service.NewBookingService(bookingRepo, rules, notices, clock, logger, cfg.Booking.StartSkew)
	paymentService := service.NewPaymentService(bookingRepo, gatewayClient, signer, rules, notices, clock, logger, service.GatewaySettings{
		AppID:       cfg.Gateway.AppID,
		Currency:    cfg.Gateway.Currency,
		PaymentURL:  cfg.Gateway.PaymentURL,
		ReturnURL:   cfg.Gateway.ReturnURL,
		OrderPrefix: cfg.Gateway.OrderPrefix,
	})
	availabilityService := service.NewAvailabilityService(bookingRepo, clock)

	var lease ports.SweepLease
	if cfg.Redis.Addr != "" {
		redisClient := redisadapter.NewClient(cfg.Redis)
		defer redisClient.Close()
		lease = redisadapter.NewSweepLease(redisClient, logger)
		logger.Info("sweep lease enabled", "redis_addr", cfg.Redis.Addr)
	}

	sweeper := worker.NewSweeper(bookingRepo, bookingService, paymentService, lease, clock, cfg.Worker, logger)

	auth := handler.NewAuthenticator(cfg.Auth.JWTSecret)
	h := handler.NewHandler(
		bookingService,
		paymentService,
		availabilityService,
		receipt.NewRenderer(cfg.Booking.ReceiptBaseURL),
		auth,
		cfg.Gateway.FrontendURL,
		logger,
	)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      h.Routes(cfg.Server.ReadTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
