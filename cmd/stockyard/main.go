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
	"github.com/redis/go-redis/v9"

	"github.com/stockyard-erp/stockyard/internal/app"
	"github.com/stockyard-erp/stockyard/internal/catalog/locations"
	"github.com/stockyard-erp/stockyard/internal/catalog/products"
	"github.com/stockyard-erp/stockyard/internal/catalog/suppliers"
	"github.com/stockyard-erp/stockyard/internal/ledger"
	"github.com/stockyard-erp/stockyard/internal/observability"
	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/db"
	"github.com/stockyard-erp/stockyard/internal/reports"
	"github.com/stockyard-erp/stockyard/internal/shared"
	"github.com/stockyard-erp/stockyard/internal/transactions"
	"github.com/stockyard-erp/stockyard/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	reportCache := cache.NewReportCache(redisClient, cfg.CacheTTL)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	productsRepo := products.NewRepository(dbpool)
	productsService := products.NewService(productsRepo, products.ServiceConfig{
		AutoCreateInventory:    cfg.AutoCreateInventory,
		DefaultReorderPoint:    cfg.DefaultReorderPoint,
		DefaultReorderQuantity: cfg.DefaultReorderQty,
	}, reportCache, logger)
	productsHandler := products.NewHandler(logger, productsService, products.HandlerConfig{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize})

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo, reportCache, logger)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, suppliers.HandlerConfig{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize})

	locationsRepo := locations.NewRepository(dbpool)
	locationsService := locations.NewService(locationsRepo, reportCache, logger)
	locationsHandler := locations.NewHandler(logger, locationsService, locations.HandlerConfig{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize})

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, ledger.ServiceConfig{
		AllowNegativeInventory: cfg.AllowNegativeInventory,
		AutoCreateInventory:    cfg.AutoCreateInventory,
		DefaultReorderPoint:    cfg.DefaultReorderPoint,
	}, reportCache, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	transactionsRepo := transactions.NewRepository(dbpool)
	transactionsService := transactions.NewService(transactionsRepo, transactions.ServiceConfig{
		AllowNegativeInventory: cfg.AllowNegativeInventory,
	}, reportCache, auditLogger, logger)
	transactionsHandler := transactions.NewHandler(logger, transactionsService, transactions.HandlerConfig{DefaultPageSize: cfg.DefaultPageSize, MaxPageSize: cfg.MaxPageSize})

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(reportsRepo, reportCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Pool:                dbpool,
		Redis:               redisClient,
		Metrics:             metrics,
		ProductsHandler:     productsHandler,
		SuppliersHandler:    suppliersHandler,
		LocationsHandler:    locationsHandler,
		LedgerHandler:       ledgerHandler,
		TransactionsHandler: transactionsHandler,
		ReportsHandler:      reportsHandler,
		JobsHandler:         jobsHandler,
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
