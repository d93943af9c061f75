package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stockyard-erp/stockyard/internal/app"
	"github.com/stockyard-erp/stockyard/internal/catalog/suppliers"
	"github.com/stockyard-erp/stockyard/internal/ledger"
	"github.com/stockyard-erp/stockyard/internal/observability"
	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/db"
	"github.com/stockyard-erp/stockyard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
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

	reportCache := cache.NewReportCache(redisClient, cfg.CacheTTL)
	metrics := observability.NewMetrics()

	suppliersRepo := suppliers.NewRepository(pool)
	suppliersService := suppliers.NewService(suppliersRepo, reportCache, logger)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, ledger.ServiceConfig{
		AllowNegativeInventory: cfg.AllowNegativeInventory,
		AutoCreateInventory:    cfg.AutoCreateInventory,
		DefaultReorderPoint:    cfg.DefaultReorderPoint,
	}, reportCache, logger)

	ratingJob := &jobs.SupplierRatingRefreshJob{Suppliers: suppliersService, Logger: logger, Metrics: metrics}
	warmupJob := &jobs.LowStockWarmupJob{Ledger: ledgerService, Logger: logger, Metrics: metrics}

	ratingTask, err := jobs.NewSupplierRatingRefreshTask()
	if err != nil {
		logger.Error("build rating task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewLowStockWarmupTask()
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSupplierRatingRefresh, Handler: ratingJob.Handle},
			{Type: jobs.TaskLowStockWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: ratingTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/30 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
