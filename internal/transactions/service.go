package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/stockyard-erp/stockyard/internal/ledger"
	"github.com/stockyard-erp/stockyard/internal/platform/cache"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

// ServiceConfig carries behaviour toggles the processor honours.
type ServiceConfig struct {
	AllowNegativeInventory bool
}

// Service is the stock movement processor. Every movement appends a
// transaction row and updates the ledger row in one database transaction.
type Service struct {
	repo    RepositoryPort
	cfg     ServiceConfig
	reports *cache.ReportCache
	audit   *shared.AuditLogger
	logger  *slog.Logger
}

// NewService constructs Service.
func NewService(repo RepositoryPort, cfg ServiceConfig, reports *cache.ReportCache, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, reports: reports, audit: audit, logger: logger}
}

// Create appends one movement. The quantity sign must match the type: IN
// positive, OUT negative, ADJUSTMENT any nonzero value.
func (s *Service) Create(ctx context.Context, input CreateInput) (Transaction, error) {
	if err := validateInput(input); err != nil {
		return Transaction{}, err
	}
	var created Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = s.applyLocked(ctx, tx, input)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.afterCommit(ctx, created)
	return created, nil
}

// CreateBatch appends movements sequentially inside one database
// transaction. The first failure rolls back the whole batch.
func (s *Service) CreateBatch(ctx context.Context, inputs []CreateInput) ([]Transaction, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", httpx.ErrValidation)
	}
	for i, input := range inputs {
		if err := validateInput(input); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	created := make([]Transaction, 0, len(inputs))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, input := range inputs {
			txn, err := s.applyLocked(ctx, tx, input)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			created = append(created, txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, txn := range created {
		s.afterCommit(ctx, txn)
	}
	return created, nil
}

// Receipt receives stock into a location.
func (s *Service) Receipt(ctx context.Context, input ReceiptInput) (Transaction, error) {
	return s.Create(ctx, CreateInput{
		ProductID:       input.ProductID,
		LocationID:      input.LocationID,
		Type:            TypeIn,
		Quantity:        input.Quantity,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		PerformedBy:     input.PerformedBy,
	})
}

// Shipment ships stock out of a location. The positive request quantity is
// stored negative.
func (s *Service) Shipment(ctx context.Context, input ShipmentInput) (Transaction, error) {
	return s.Create(ctx, CreateInput{
		ProductID:       input.ProductID,
		LocationID:      input.LocationID,
		Type:            TypeOut,
		Quantity:        -input.Quantity,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		PerformedBy:     input.PerformedBy,
	})
}

// Adjustment corrects stock by a signed quantity. The reason is mandatory
// and stored in the notes.
func (s *Service) Adjustment(ctx context.Context, input AdjustmentInput) (Transaction, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return Transaction{}, fmt.Errorf("%w: adjustment reason is required", httpx.ErrValidation)
	}
	return s.Create(ctx, CreateInput{
		ProductID:   input.ProductID,
		LocationID:  input.LocationID,
		Type:        TypeAdjustment,
		Quantity:    input.Quantity,
		Notes:       input.Reason,
		PerformedBy: input.PerformedBy,
	})
}

// Transfer moves stock between two distinct locations. Both legs share a
// generated reference number and commit or roll back together.
func (s *Service) Transfer(ctx context.Context, input TransferInput) ([]Transaction, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: transfer quantity must be positive", httpx.ErrValidation)
	}
	if input.FromLocationID == input.ToLocationID {
		return nil, fmt.Errorf("%w: source and destination locations must differ", httpx.ErrBusinessRule)
	}
	ref := "TRF-" + strings.ToUpper(uuid.NewString()[:8])
	legs := []CreateInput{
		{
			ProductID:       input.ProductID,
			LocationID:      input.FromLocationID,
			Type:            TypeTransfer,
			Quantity:        -input.Quantity,
			ReferenceNumber: ref,
			Notes:           input.Notes,
			PerformedBy:     input.PerformedBy,
		},
		{
			ProductID:       input.ProductID,
			LocationID:      input.ToLocationID,
			Type:            TypeTransfer,
			Quantity:        input.Quantity,
			ReferenceNumber: ref,
			Notes:           input.Notes,
			PerformedBy:     input.PerformedBy,
		},
	}
	created := make([]Transaction, 0, 2)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, leg := range legs {
			txn, err := s.applyLocked(ctx, tx, leg)
			if err != nil {
				return err
			}
			created = append(created, txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, txn := range created {
		s.afterCommit(ctx, txn)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]Transaction, shared.Pagination, error) {
	limit, offset := page.LimitOffset()
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page.Page, page.Size, int(total)), nil
}

// Summarize aggregates the transaction log, optionally filtered the same
// way listings are.
func (s *Service) Summarize(ctx context.Context, filter ListFilter) (Summary, error) {
	return s.repo.Summarize(ctx, filter)
}

// applyLocked runs one movement against a locked ledger row. Caller holds
// the database transaction.
func (s *Service) applyLocked(ctx context.Context, tx TxRepository, input CreateInput) (Transaction, error) {
	if err := tx.EnsureRefs(ctx, input.ProductID, input.LocationID); err != nil {
		return Transaction{}, err
	}
	row, err := tx.GetRowForUpdate(ctx, input.ProductID, input.LocationID)
	if err != nil && err != ledger.ErrRowNotFound {
		return Transaction{}, err
	}

	if input.Quantity < 0 {
		needed := -input.Quantity
		if avail := row.Available(); needed > avail && (input.Type == TypeOut || input.Type == TypeTransfer) {
			return Transaction{}, fmt.Errorf("%w: requested %d, available %d", httpx.ErrInsufficientStock, needed, avail)
		}
	}
	newOnHand := row.OnHand + input.Quantity
	if newOnHand < 0 && !s.cfg.AllowNegativeInventory {
		return Transaction{}, fmt.Errorf("%w: quantity on hand would go negative (%d)", httpx.ErrInvalidState, newOnHand)
	}

	row.OnHand = newOnHand
	if err := tx.UpsertRow(ctx, row); err != nil {
		return Transaction{}, err
	}
	return tx.Insert(ctx, Transaction{
		ProductID:       input.ProductID,
		LocationID:      input.LocationID,
		Type:            input.Type,
		Quantity:        input.Quantity,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		PerformedBy:     input.PerformedBy,
	})
}

func (s *Service) afterCommit(ctx context.Context, txn Transaction) {
	s.reports.Bump(ctx)
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  txn.PerformedBy,
		Action:   "stock." + strings.ToLower(string(txn.Type)),
		Entity:   "transaction",
		EntityID: strconv.FormatInt(txn.ID, 10),
		Meta: map[string]any{
			"product_id":  txn.ProductID,
			"location_id": txn.LocationID,
			"quantity":    txn.Quantity,
			"reference":   txn.ReferenceNumber,
		},
	}); err != nil {
		s.logger.Warn("audit record failed", "error", err, "transaction_id", txn.ID)
	}
}

func validateInput(input CreateInput) error {
	if !input.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", httpx.ErrValidation, input.Type)
	}
	if input.Quantity == 0 {
		return fmt.Errorf("%w: quantity cannot be zero", httpx.ErrBusinessRule)
	}
	switch input.Type {
	case TypeIn:
		if input.Quantity < 0 {
			return fmt.Errorf("%w: receipt quantity must be positive", httpx.ErrValidation)
		}
	case TypeOut:
		if input.Quantity > 0 {
			return fmt.Errorf("%w: shipment quantity must be negative", httpx.ErrValidation)
		}
	}
	return nil
}
