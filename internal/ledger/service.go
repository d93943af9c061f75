package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

// ServiceConfig carries the behaviour toggles the service honours.
type ServiceConfig struct {
	AllowNegativeInventory bool
	AutoCreateInventory    bool
	DefaultReorderPoint    int
}

// Service owns ledger reads and the quantity mutations that bypass the
// transaction log (manual correction, reserve, release).
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

func (s *Service) List(ctx context.Context, filter Filter) ([]Row, error) {
	return s.repo.List(ctx, filter)
}

// Get returns the ledger row for a product at a location. When no row exists
// and auto-creation is enabled the caller sees a zero-quantity row rather
// than a not-found error.
func (s *Service) Get(ctx context.Context, productID, locationID int64) (Row, error) {
	row, err := s.repo.Get(ctx, productID, locationID)
	if err == ErrRowNotFound && s.cfg.AutoCreateInventory {
		created := Row{ProductID: productID, LocationID: locationID}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := tx.EnsureRefs(ctx, productID, locationID); err != nil {
				return err
			}
			return tx.UpsertRow(ctx, created)
		})
		if err != nil {
			return Row{}, err
		}
		return created, nil
	}
	if err == ErrRowNotFound {
		return Row{}, fmt.Errorf("%w: inventory for product %d at location %d", httpx.ErrNotFound, productID, locationID)
	}
	return row, err
}

// SetQuantities applies a manual correction outside the transaction log.
// Negative on-hand requires the negative-inventory toggle; reserved never
// goes negative.
func (s *Service) SetQuantities(ctx context.Context, productID, locationID int64, input SetQuantitiesInput) (Row, error) {
	if input.OnHand == nil && input.Reserved == nil {
		return Row{}, fmt.Errorf("%w: no quantities supplied", httpx.ErrValidation)
	}
	if input.OnHand != nil && *input.OnHand < 0 && !s.cfg.AllowNegativeInventory {
		return Row{}, fmt.Errorf("%w: quantity on hand cannot go negative", httpx.ErrInvalidState)
	}
	if input.Reserved != nil && *input.Reserved < 0 {
		return Row{}, fmt.Errorf("%w: reserved quantity cannot go negative", httpx.ErrValidation)
	}

	var result Row
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.EnsureRefs(ctx, productID, locationID); err != nil {
			return err
		}
		row, err := tx.GetRowForUpdate(ctx, productID, locationID)
		if err != nil && err != ErrRowNotFound {
			return err
		}
		if input.OnHand != nil {
			row.OnHand = *input.OnHand
		}
		if input.Reserved != nil {
			row.Reserved = *input.Reserved
		}
		result = row
		return tx.UpsertRow(ctx, row)
	})
	if err != nil {
		return Row{}, err
	}
	s.reports.Bump(ctx)
	return result, nil
}

// Reserve earmarks stock for a pending order. The request fails when it
// exceeds what is currently available at the location.
func (s *Service) Reserve(ctx context.Context, productID, locationID int64, qty int) (Row, error) {
	if qty <= 0 {
		return Row{}, fmt.Errorf("%w: reserve quantity must be positive", httpx.ErrValidation)
	}
	var result Row
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		row, err := tx.GetRowForUpdate(ctx, productID, locationID)
		if err != nil {
			if err == ErrRowNotFound {
				return fmt.Errorf("%w: inventory for product %d at location %d", httpx.ErrNotFound, productID, locationID)
			}
			return err
		}
		if qty > row.Available() {
			return fmt.Errorf("%w: requested %d, available %d", httpx.ErrInsufficientStock, qty, row.Available())
		}
		row.Reserved += qty
		result = row
		return tx.UpsertRow(ctx, row)
	})
	if err != nil {
		return Row{}, err
	}
	s.reports.Bump(ctx)
	return result, nil
}

// Release returns previously reserved stock. Releasing more than is reserved
// clamps at zero rather than failing, since callers often release a whole
// order after a partial shipment already consumed part of the reservation.
func (s *Service) Release(ctx context.Context, productID, locationID int64, qty int) (Row, error) {
	if qty <= 0 {
		return Row{}, fmt.Errorf("%w: release quantity must be positive", httpx.ErrValidation)
	}
	var result Row
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		row, err := tx.GetRowForUpdate(ctx, productID, locationID)
		if err != nil {
			if err == ErrRowNotFound {
				return fmt.Errorf("%w: inventory for product %d at location %d", httpx.ErrNotFound, productID, locationID)
			}
			return err
		}
		if qty > row.Reserved {
			s.logger.Warn("release exceeds reservation, clamping",
				"product_id", productID, "location_id", locationID,
				"requested", qty, "reserved", row.Reserved)
			row.Reserved = 0
		} else {
			row.Reserved -= qty
		}
		result = row
		return tx.UpsertRow(ctx, row)
	})
	if err != nil {
		return Row{}, err
	}
	s.reports.Bump(ctx)
	return result, nil
}

func (s *Service) TotalAvailable(ctx context.Context, productID int64) (int, error) {
	return s.repo.TotalAvailable(ctx, productID)
}

// LowStock lists active products whose aggregate availability has fallen to
// or below their reorder point.
func (s *Service) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	key, err := s.reports.BuildKey(ctx, "lowstock")
	if err != nil {
		return nil, err
	}
	var alerts []LowStockAlert
	err = s.reports.FetchJSON(ctx, key, &alerts, func(ctx context.Context) (any, error) {
		return s.lowStock(ctx)
	})
	return alerts, err
}

func (s *Service) lowStock(ctx context.Context) ([]LowStockAlert, error) {
	products, err := s.repo.ActiveProductAvailability(ctx)
	if err != nil {
		return nil, err
	}
	alerts := []LowStockAlert{}
	for _, p := range products {
		if p.TotalAvailable > p.ReorderPoint {
			continue
		}
		shortage := p.ReorderPoint - p.TotalAvailable
		if shortage < 0 {
			shortage = 0
		}
		alerts = append(alerts, LowStockAlert{
			ProductID:       p.ProductID,
			SKU:             p.SKU,
			Name:            p.Name,
			ReorderPoint:    p.ReorderPoint,
			ReorderQuantity: p.ReorderQuantity,
			TotalAvailable:  p.TotalAvailable,
			Shortage:        shortage,
			Locations:       p.Locations,
		})
	}
	return alerts, nil
}

// Summarize aggregates the whole ledger.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	key, err := s.reports.BuildKey(ctx, "ledger", "summary")
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.reports.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.repo.Summary(ctx)
	})
	return summary, err
}
