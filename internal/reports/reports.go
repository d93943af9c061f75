// Package reports serves the cross-module system statistics endpoint.
package reports

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

// SystemStats is the aggregate counts snapshot.
type SystemStats struct {
	TotalProducts     int64 `json:"total_products"`
	ActiveProducts    int64 `json:"active_products"`
	TotalSuppliers    int64 `json:"total_suppliers"`
	ActiveSuppliers   int64 `json:"active_suppliers"`
	TotalLocations    int64 `json:"total_locations"`
	ActiveLocations   int64 `json:"active_locations"`
	InventoryRecords  int64 `json:"inventory_records"`
	TotalTransactions int64 `json:"total_transactions"`
	TotalOnHand       int64 `json:"total_on_hand"`
}

// RepositoryPort abstracts the stats query.
type RepositoryPort interface {
	SystemStats(ctx context.Context) (SystemStats, error)
}

// Repository reads aggregate counts from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) SystemStats(ctx context.Context) (SystemStats, error) {
	var s SystemStats
	err := r.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM products),
	(SELECT COUNT(*) FROM products WHERE is_active),
	(SELECT COUNT(*) FROM suppliers),
	(SELECT COUNT(*) FROM suppliers WHERE is_active),
	(SELECT COUNT(*) FROM locations),
	(SELECT COUNT(*) FROM locations WHERE is_active),
	(SELECT COUNT(*) FROM inventory),
	(SELECT COUNT(*) FROM transactions),
	(SELECT COALESCE(SUM(quantity_on_hand), 0) FROM inventory)`).
		Scan(&s.TotalProducts, &s.ActiveProducts, &s.TotalSuppliers, &s.ActiveSuppliers,
			&s.TotalLocations, &s.ActiveLocations, &s.InventoryRecords, &s.TotalTransactions, &s.TotalOnHand)
	return s, err
}

// Service caches the stats snapshot.
type Service struct {
	repo    RepositoryPort
	reports *cache.ReportCache
}

// NewService constructs Service.
func NewService(repo RepositoryPort, reports *cache.ReportCache) *Service {
	return &Service{repo: repo, reports: reports}
}

func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	key, err := s.reports.BuildKey(ctx, "system", "stats")
	if err != nil {
		return SystemStats{}, err
	}
	var stats SystemStats
	err = s.reports.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
		return s.repo.SystemStats(ctx)
	})
	return stats, err
}

// Handler wires the stats endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SystemStats(r.Context())
	if err != nil {
		h.logger.Error("system stats", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
