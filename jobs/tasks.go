// Package jobs contains the asynq background tasks for Stockyard.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/stockyard-erp/stockyard/internal/catalog/suppliers"
	"github.com/stockyard-erp/stockyard/internal/ledger"
	"github.com/stockyard-erp/stockyard/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSupplierRatingRefresh re-rates all active suppliers.
	TaskSupplierRatingRefresh = "stock:supplier_rating_refresh"
	// TaskLowStockWarmup recomputes the low-stock report into the cache.
	TaskLowStockWarmup = "stock:lowstock_warmup"
)

// SupplierRatingRefreshPayload is the task payload for rating refreshes.
// Empty today; kept as a struct so new fields stay wire-compatible.
type SupplierRatingRefreshPayload struct{}

// NewSupplierRatingRefreshTask constructs the asynq task.
func NewSupplierRatingRefreshTask() (*asynq.Task, error) {
	data, err := json.Marshal(SupplierRatingRefreshPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSupplierRatingRefresh, data), nil
}

// NewLowStockWarmupTask constructs the asynq task.
func NewLowStockWarmupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskLowStockWarmup, nil), nil
}

// SupplierRatingRefreshJob re-rates every active supplier.
type SupplierRatingRefreshJob struct {
	Suppliers *suppliers.Service
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Handle processes supplier rating refresh tasks.
func (j *SupplierRatingRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Suppliers == nil {
		return errors.New("supplier rating refresh: handler not configured")
	}
	updated, err := j.Suppliers.RefreshAllRatings(ctx)
	if err != nil {
		j.record("error")
		j.logger().Error("supplier rating refresh failed", "error", err)
		return err
	}
	j.record("ok")
	j.logger().Info("supplier ratings refreshed", "updated", updated)
	return nil
}

func (j *SupplierRatingRefreshJob) record(result string) {
	if j.Metrics != nil {
		j.Metrics.RecordJob(TaskSupplierRatingRefresh, result)
	}
}

func (j *SupplierRatingRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// LowStockWarmupJob recomputes the low-stock report so the first dashboard
// request after an invalidation hits a warm cache.
type LowStockWarmupJob struct {
	Ledger  *ledger.Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Handle processes low-stock warmup tasks.
func (j *LowStockWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ledger == nil {
		return errors.New("low stock warmup: handler not configured")
	}
	alerts, err := j.Ledger.LowStock(ctx)
	if err != nil {
		j.record("error")
		j.logger().Error("low stock warmup failed", "error", err)
		return err
	}
	j.record("ok")
	j.logger().Info("low stock report warmed", "alerts", len(alerts))
	return nil
}

func (j *LowStockWarmupJob) record(result string) {
	if j.Metrics != nil {
		j.Metrics.RecordJob(TaskLowStockWarmup, result)
	}
}

func (j *LowStockWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
