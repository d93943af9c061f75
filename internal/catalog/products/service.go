package products

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

// ServiceConfig carries catalog defaults.
type ServiceConfig struct {
	AutoCreateInventory    bool
	DefaultReorderPoint    int
	DefaultReorderQuantity int
}

// Service owns product catalog operations.
type Service struct {
	repo    RepositoryPort
	cfg     ServiceConfig
	reports *cache.ReportCache
	logger  *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, cfg ServiceConfig, reports *cache.ReportCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, reports: reports, logger: logger}
}

// Create inserts a product. When inventory auto-creation is on, zero rows
// are seeded at every active location so the product shows up in ledger
// listings immediately.
func (s *Service) Create(ctx context.Context, input CreateInput) (Product, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return Product{}, fmt.Errorf("%w: sku is required", httpx.ErrValidation)
	}
	if input.SupplierID != nil {
		active, err := s.repo.SupplierActive(ctx, *input.SupplierID)
		if err != nil {
			return Product{}, err
		}
		if !active {
			return Product{}, fmt.Errorf("%w: supplier %d is inactive", httpx.ErrValidation, *input.SupplierID)
		}
	}

	p := Product{
		SKU:             sku,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Category:        input.Category,
		UnitCost:        input.UnitCost,
		UnitPrice:       input.UnitPrice,
		Weight:          input.Weight,
		Dimensions:      input.Dimensions,
		ReorderPoint:    s.cfg.DefaultReorderPoint,
		ReorderQuantity: s.cfg.DefaultReorderQuantity,
		SupplierID:      input.SupplierID,
	}
	if input.ReorderPoint != nil {
		p.ReorderPoint = *input.ReorderPoint
	}
	if input.ReorderQuantity != nil {
		p.ReorderQuantity = *input.ReorderQuantity
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}

	if s.cfg.AutoCreateInventory {
		locationIDs, err := s.repo.ActiveLocationIDs(ctx)
		if err == nil {
			err = s.repo.SeedInventoryRows(ctx, created.ID, locationIDs)
		}
		if err != nil {
			s.logger.Warn("seeding inventory rows failed", "product_id", created.ID, "error", err)
		}
	}
	s.reports.Bump(ctx)
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return s.repo.GetBySKU(ctx, sku)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]Product, shared.Pagination, error) {
	limit, offset := page.LimitOffset()
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page.Page, page.Size, int(total)), nil
}

// Update applies only the supplied fields. The SKU is immutable.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.SupplierID != nil && (p.SupplierID == nil || *p.SupplierID != *input.SupplierID) {
		active, err := s.repo.SupplierActive(ctx, *input.SupplierID)
		if err != nil {
			return Product{}, err
		}
		if !active {
			return Product{}, fmt.Errorf("%w: supplier %d is inactive", httpx.ErrValidation, *input.SupplierID)
		}
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.UnitCost != nil {
		p.UnitCost = *input.UnitCost
	}
	if input.UnitPrice != nil {
		p.UnitPrice = *input.UnitPrice
	}
	if input.Weight != nil {
		p.Weight = *input.Weight
	}
	if input.Dimensions != nil {
		p.Dimensions = *input.Dimensions
	}
	if input.ReorderPoint != nil {
		p.ReorderPoint = *input.ReorderPoint
	}
	if input.ReorderQuantity != nil {
		p.ReorderQuantity = *input.ReorderQuantity
	}
	if input.SupplierID != nil {
		p.SupplierID = input.SupplierID
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.reports.Bump(ctx)
	return updated, nil
}

// SoftDelete deactivates a product, keeping its history.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.reports.Bump(ctx)
	return nil
}

// HardDelete removes a product permanently. Any transaction history or
// remaining stock blocks the delete; all-zero inventory rows are swept
// away with the product.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	hasTxns, err := s.repo.HasTransactions(ctx, id)
	if err != nil {
		return err
	}
	if hasTxns {
		return fmt.Errorf("%w: product %d has transaction history", httpx.ErrBusinessRule, id)
	}
	hasStock, err := s.repo.HasNonZeroInventory(ctx, id)
	if err != nil {
		return err
	}
	if hasStock {
		return fmt.Errorf("%w: product %d still has stock on hand", httpx.ErrBusinessRule, id)
	}
	if err := s.repo.DeleteZeroInventoryRows(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.reports.Bump(ctx)
	return nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}
