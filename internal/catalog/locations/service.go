package locations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

const defaultActivityDays = 30

// Service owns location directory operations and activity reporting.
type Service struct {
	repo    RepositoryPort
	reports *cache.ReportCache
	logger  *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, reports *cache.ReportCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, reports: reports, logger: logger}
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Location, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Location{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	created, err := s.repo.Create(ctx, Location{
		Name:          name,
		Code:          strings.ToUpper(strings.TrimSpace(input.Code)),
		Address:       input.Address,
		WarehouseType: input.WarehouseType,
	})
	if err != nil {
		return Location{}, err
	}
	s.reports.Bump(ctx)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (Location, error) {
	return s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) List(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]Location, shared.Pagination, error) {
	limit, offset := page.LimitOffset()
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page.Page, page.Size, int(total)), nil
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Location, error) {
	location, err := s.repo.Get(ctx, id)
	if err != nil {
		return Location{}, err
	}
	if input.Name != nil {
		location.Name = strings.TrimSpace(*input.Name)
	}
	if input.Code != nil {
		location.Code = strings.ToUpper(strings.TrimSpace(*input.Code))
	}
	if input.Address != nil {
		location.Address = *input.Address
	}
	if input.WarehouseType != nil {
		location.WarehouseType = *input.WarehouseType
	}
	if input.IsActive != nil {
		location.IsActive = *input.IsActive
	}
	updated, err := s.repo.Update(ctx, location)
	if err != nil {
		return Location{}, err
	}
	s.reports.Bump(ctx)
	return updated, nil
}

// SoftDelete deactivates a location. Blocked while stock is still recorded
// there.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	stock, err := s.repo.StockOnHand(ctx, id)
	if err != nil {
		return err
	}
	if stock != 0 {
		return fmt.Errorf("%w: location %d still holds stock", httpx.ErrBusinessRule, id)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.reports.Bump(ctx)
	return nil
}

// HardDelete removes a location permanently. Transaction history or
// remaining stock blocks the delete; empty inventory rows are removed
// first.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	hasTxns, err := s.repo.HasTransactions(ctx, id)
	if err != nil {
		return err
	}
	if hasTxns {
		return fmt.Errorf("%w: location %d has transaction history", httpx.ErrBusinessRule, id)
	}
	stock, err := s.repo.StockOnHand(ctx, id)
	if err != nil {
		return err
	}
	if stock != 0 {
		return fmt.Errorf("%w: location %d still holds stock", httpx.ErrBusinessRule, id)
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

// Activity reports movements at a location over the trailing day window.
func (s *Service) Activity(ctx context.Context, id int64, days int) (Activity, error) {
	if days <= 0 {
		days = defaultActivityDays
	}
	location, err := s.repo.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	since := time.Now().AddDate(0, 0, -days)
	activity, err := s.repo.Activity(ctx, id, since)
	if err != nil {
		return Activity{}, err
	}
	activity.Name = location.Name
	activity.Days = days
	return activity, nil
}

// InventorySummary aggregates the stock held at one location.
func (s *Service) InventorySummary(ctx context.Context, id int64) (InventorySummary, error) {
	location, err := s.repo.Get(ctx, id)
	if err != nil {
		return InventorySummary{}, err
	}
	summary, err := s.repo.InventorySummary(ctx, id)
	if err != nil {
		return InventorySummary{}, err
	}
	summary.Name = location.Name
	return summary, nil
}

// Statistics aggregates the location directory.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	key, err := s.reports.BuildKey(ctx, "locations", "statistics")
	if err != nil {
		return Statistics{}, err
	}
	var stats Statistics
	err = s.reports.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
		return s.repo.Statistics(ctx)
	})
	return stats, err
}
