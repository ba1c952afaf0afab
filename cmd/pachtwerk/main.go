package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pachtwerk/pachtwerk/internal/app"
	"github.com/pachtwerk/pachtwerk/internal/invoicing"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/parks"
	"github.com/pachtwerk/pachtwerk/internal/observability"
	"github.com/pachtwerk/pachtwerk/internal/platform/cache"
	"github.com/pachtwerk/pachtwerk/internal/platform/db"
	"github.com/pachtwerk/pachtwerk/internal/settlement"
	"github.com/pachtwerk/pachtwerk/internal/shared"
	"github.com/pachtwerk/pachtwerk/internal/tax"
	"github.com/pachtwerk/pachtwerk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	runLock := shared.NewRunLock(redisClient, cfg.GenerationLockTTL)

	parkRepo := parks.NewRepository(pool)
	leaseRepo := leases.NewRepository(pool)
	articleRepo := articles.NewRepository(pool)
	taxConfig := tax.NewRepository(pool)

	invoiceRepo := invoicing.NewRepository(pool)
	numberAllocator := invoicing.NewNumberAllocator(pool)
	invoicingService := invoicing.NewService(logger, invoiceRepo, numberAllocator, auditLogger)
	invoicingHandler := invoicing.NewHandler(logger, invoicingService)

	notifier := jobs.NewEnqueuer(asynqClient)

	settlementRepo := settlement.NewRepository(pool)
	settlementService := settlement.NewService(
		logger,
		settlementRepo,
		parkRepo,
		leaseRepo,
		articleRepo,
		taxConfig,
		invoiceRepo,
		numberAllocator,
		runLock,
		auditLogger,
		notifier,
		metrics,
	)
	settlementHandler := settlement.NewHandler(logger, settlementService, idempotencyStore)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SettlementHandler: settlementHandler,
		InvoicingHandler:  invoicingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
