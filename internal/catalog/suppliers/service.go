package suppliers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

const defaultLeadTimeDays = 7

// Service owns supplier directory operations and performance scoring.
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

func (s *Service) Create(ctx context.Context, input CreateInput) (Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Supplier{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	supplier := Supplier{
		Name:            name,
		ContactPerson:   input.ContactPerson,
		Email:           input.Email,
		Phone:           input.Phone,
		Address:         input.Address,
		LeadTimeDays:    defaultLeadTimeDays,
		PaymentTerms:    input.PaymentTerms,
		MinimumOrderQty: 1,
	}
	if input.LeadTimeDays != nil {
		supplier.LeadTimeDays = *input.LeadTimeDays
	}
	if input.MinimumOrderQty != nil {
		supplier.MinimumOrderQty = *input.MinimumOrderQty
	}
	created, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.reports.Bump(ctx)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]Supplier, shared.Pagination, error) {
	limit, offset := page.LimitOffset()
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page.Page, page.Size, int(total)), nil
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Supplier, error) {
	supplier, err := s.repo.Get(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	if input.Name != nil {
		supplier.Name = strings.TrimSpace(*input.Name)
	}
	if input.ContactPerson != nil {
		supplier.ContactPerson = *input.ContactPerson
	}
	if input.Email != nil {
		supplier.Email = *input.Email
	}
	if input.Phone != nil {
		supplier.Phone = *input.Phone
	}
	if input.Address != nil {
		supplier.Address = *input.Address
	}
	if input.LeadTimeDays != nil {
		supplier.LeadTimeDays = *input.LeadTimeDays
	}
	if input.PaymentTerms != nil {
		supplier.PaymentTerms = *input.PaymentTerms
	}
	if input.MinimumOrderQty != nil {
		supplier.MinimumOrderQty = *input.MinimumOrderQty
	}
	if input.IsActive != nil {
		supplier.IsActive = *input.IsActive
	}
	updated, err := s.repo.Update(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.reports.Bump(ctx)
	return updated, nil
}

// SoftDelete deactivates a supplier. Blocked while active products still
// reference it.
func (s *Service) SoftDelete(ctx context.Context, id int64) error {
	counts, err := s.repo.ProductCounts(ctx, id)
	if err != nil {
		return err
	}
	if counts.Active > 0 {
		return fmt.Errorf("%w: supplier %d still has %d active products", httpx.ErrBusinessRule, id, counts.Active)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.reports.Bump(ctx)
	return nil
}

// HardDelete removes a supplier permanently. Any referencing product blocks
// the delete.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	counts, err := s.repo.ProductCounts(ctx, id)
	if err != nil {
		return err
	}
	if counts.Total > 0 {
		return fmt.Errorf("%w: supplier %d is referenced by %d products", httpx.ErrBusinessRule, id, counts.Total)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.reports.Bump(ctx)
	return nil
}

// Performance computes the supplier scorecard. The score averages an
// activity term, min(5, receipts/10), with a lead-time term,
// max(0, 5 − leadTimeDays/10), rounded to two decimals. A supplier with no
// products or no receipts scores zero.
func (s *Service) Performance(ctx context.Context, id int64) (Performance, error) {
	supplier, err := s.repo.Get(ctx, id)
	if err != nil {
		return Performance{}, err
	}
	counts, err := s.repo.ProductCounts(ctx, id)
	if err != nil {
		return Performance{}, err
	}
	receipts, err := s.repo.ReceiptStats(ctx, id)
	if err != nil {
		return Performance{}, err
	}

	perf := Performance{
		SupplierID:       supplier.ID,
		Name:             supplier.Name,
		LeadTimeDays:     supplier.LeadTimeDays,
		TotalProducts:    counts.Total,
		ActiveProducts:   counts.Active,
		ReceiptCount:     receipts.Count,
		QuantityReceived: receipts.Quantity,
	}
	if counts.Total == 0 || receipts.Count == 0 {
		return perf, nil
	}
	activity := math.Min(5, float64(receipts.Count)/10)
	leadTime := math.Max(0, 5-float64(supplier.LeadTimeDays)/10)
	perf.Score = math.Round((activity+leadTime)/2*100) / 100
	return perf, nil
}

// RefreshRating recomputes and persists the performance rating.
func (s *Service) RefreshRating(ctx context.Context, id int64) (Performance, error) {
	perf, err := s.Performance(ctx, id)
	if err != nil {
		return Performance{}, err
	}
	if err := s.repo.SetRating(ctx, id, perf.Score); err != nil {
		return Performance{}, err
	}
	s.reports.Bump(ctx)
	return perf, nil
}

// RefreshAllRatings re-rates every active supplier, returning how many were
// updated. Individual failures are logged and skipped.
func (s *Service) RefreshAllRatings(ctx context.Context) (int, error) {
	ids, err := s.repo.ActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, id := range ids {
		if _, err := s.RefreshRating(ctx, id); err != nil {
			s.logger.Warn("supplier rating refresh failed", "supplier_id", id, "error", err)
			continue
		}
		updated++
	}
	return updated, nil
}

// Statistics aggregates the supplier directory.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	key, err := s.reports.BuildKey(ctx, "suppliers", "statistics")
	if err != nil {
		return Statistics{}, err
	}
	var stats Statistics
	err = s.reports.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
		return s.repo.Statistics(ctx)
	})
	return stats, err
}

// NeedingReview lists active suppliers with no rating or a rating below 3.0.
func (s *Service) NeedingReview(ctx context.Context) ([]Supplier, error) {
	return s.repo.NeedingReview(ctx)
}
