package transactions

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockyard-erp/stockyard/internal/ledger"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

type fakeRepo struct {
	rows      map[[2]int64]ledger.Row
	log       []Transaction
	products  map[int64]bool
	locations map[int64]bool
	nextRowID int64
	nextTxnID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:      map[[2]int64]ledger.Row{},
		products:  map[int64]bool{},
		locations: map[int64]bool{},
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	rowsSnapshot := map[[2]int64]ledger.Row{}
	for k, v := range f.rows {
		rowsSnapshot[k] = v
	}
	logSnapshot := append([]Transaction(nil), f.log...)
	if err := fn(ctx, (*fakeTx)(f)); err != nil {
		f.rows = rowsSnapshot
		f.log = logSnapshot
		return err
	}
	return nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Transaction, error) {
	for _, txn := range f.log {
		if txn.ID == id {
			return txn, nil
		}
	}
	return Transaction{}, fmt.Errorf("%w: transaction %d", httpx.ErrNotFound, id)
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Transaction, int64, error) {
	matched := []Transaction{}
	for _, txn := range f.log {
		if filter.ProductID != 0 && txn.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID != 0 && txn.LocationID != filter.LocationID {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		matched = append(matched, txn)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeRepo) Summarize(ctx context.Context, filter ListFilter) (Summary, error) {
	s := Summary{ByType: map[Type]int64{}}
	for _, txn := range f.log {
		s.TotalTransactions++
		if txn.Quantity > 0 {
			s.TotalInbound += int64(txn.Quantity)
		} else {
			s.TotalOutbound += int64(-txn.Quantity)
		}
		s.NetChange += int64(txn.Quantity)
		s.ByType[txn.Type]++
	}
	return s, nil
}

type fakeTx fakeRepo

func (f *fakeTx) EnsureRefs(ctx context.Context, productID, locationID int64) error {
	if !f.products[productID] {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, productID)
	}
	if !f.locations[locationID] {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, locationID)
	}
	return nil
}

func (f *fakeTx) GetRowForUpdate(ctx context.Context, productID, locationID int64) (ledger.Row, error) {
	row, ok := f.rows[[2]int64{productID, locationID}]
	if !ok {
		return ledger.Row{ProductID: productID, LocationID: locationID}, ledger.ErrRowNotFound
	}
	return row, nil
}

func (f *fakeTx) UpsertRow(ctx context.Context, row ledger.Row) error {
	key := [2]int64{row.ProductID, row.LocationID}
	if existing, ok := f.rows[key]; ok {
		row.ID = existing.ID
	} else {
		f.nextRowID++
		row.ID = f.nextRowID
	}
	f.rows[key] = row
	return nil
}

func (f *fakeTx) Insert(ctx context.Context, txn Transaction) (Transaction, error) {
	f.nextTxnID++
	txn.ID = f.nextTxnID
	txn.CreatedAt = time.Now()
	f.log = append(f.log, txn)
	return txn, nil
}

func newTestService(repo *fakeRepo, cfg ServiceConfig) *Service {
	return NewService(repo, cfg, nil, nil, slog.Default())
}

func seed(repo *fakeRepo, products, locations []int64) {
	for _, id := range products {
		repo.products[id] = true
	}
	for _, id := range locations {
		repo.locations[id] = true
	}
}

func onHand(repo *fakeRepo, productID, locationID int64) int {
	return repo.rows[[2]int64{productID, locationID}].OnHand
}

func totalOnHand(repo *fakeRepo, productID int64) int {
	total := 0
	for _, row := range repo.rows {
		if row.ProductID == productID {
			total += row.OnHand
		}
	}
	return total
}

func TestReceiptIncreasesOnHand(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	txn, err := svc.Receipt(context.Background(), ReceiptInput{ProductID: 1, LocationID: 1, Quantity: 50, ReferenceNumber: "PO-1001"})
	require.NoError(t, err)
	require.Equal(t, TypeIn, txn.Type)
	require.Equal(t, 50, txn.Quantity)
	require.Equal(t, 50, onHand(repo, 1, 1))
}

func TestReceiptThenShipmentRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Receipt(context.Background(), ReceiptInput{ProductID: 1, LocationID: 1, Quantity: 30})
	require.NoError(t, err)
	txn, err := svc.Shipment(context.Background(), ShipmentInput{ProductID: 1, LocationID: 1, Quantity: 30})
	require.NoError(t, err)

	require.Equal(t, -30, txn.Quantity)
	require.Equal(t, 0, onHand(repo, 1, 1))
	require.Len(t, repo.log, 2)
	require.Equal(t, 30, repo.log[0].Quantity)
	require.Equal(t, -30, repo.log[1].Quantity)
}

func TestShipmentInsufficientStock(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	repo.rows[[2]int64{1, 1}] = ledger.Row{ID: 1, ProductID: 1, LocationID: 1, OnHand: 10, Reserved: 5}
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Shipment(context.Background(), ShipmentInput{ProductID: 1, LocationID: 1, Quantity: 6})
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	require.Equal(t, 10, onHand(repo, 1, 1))
	require.Empty(t, repo.log)
}

func TestShipmentHonoursReservations(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	repo.rows[[2]int64{1, 1}] = ledger.Row{ID: 1, ProductID: 1, LocationID: 1, OnHand: 10, Reserved: 4}
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Shipment(context.Background(), ShipmentInput{ProductID: 1, LocationID: 1, Quantity: 6})
	require.NoError(t, err)
	require.Equal(t, 4, onHand(repo, 1, 1))
}

func TestTransferConservesTotal(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1, 2})
	repo.rows[[2]int64{1, 1}] = ledger.Row{ID: 1, ProductID: 1, LocationID: 1, OnHand: 40}
	svc := newTestService(repo, ServiceConfig{})

	legs, err := svc.Transfer(context.Background(), TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 15})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	require.Equal(t, -15, legs[0].Quantity)
	require.Equal(t, 15, legs[1].Quantity)
	require.NotEmpty(t, legs[0].ReferenceNumber)
	require.Equal(t, legs[0].ReferenceNumber, legs[1].ReferenceNumber)

	require.Equal(t, 25, onHand(repo, 1, 1))
	require.Equal(t, 15, onHand(repo, 1, 2))
	require.Equal(t, 40, totalOnHand(repo, 1))
}

func TestTransferSameLocationRejected(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Transfer(context.Background(), TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 1, Quantity: 5})
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
}

func TestTransferInsufficientStockRollsBackBothLegs(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1, 2})
	repo.rows[[2]int64{1, 1}] = ledger.Row{ID: 1, ProductID: 1, LocationID: 1, OnHand: 10, Reserved: 8}
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Transfer(context.Background(), TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 5})
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	require.Equal(t, 10, onHand(repo, 1, 1))
	require.Equal(t, 0, onHand(repo, 1, 2))
	require.Empty(t, repo.log)
}

func TestAdjustmentRequiresReason(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Adjustment(context.Background(), AdjustmentInput{ProductID: 1, LocationID: 1, Quantity: -3, Reason: "  "})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAdjustmentNegativeGuard(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	repo.rows[[2]int64{1, 1}] = ledger.Row{ID: 1, ProductID: 1, LocationID: 1, OnHand: 2}
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Adjustment(context.Background(), AdjustmentInput{ProductID: 1, LocationID: 1, Quantity: -5, Reason: "cycle count"})
	require.ErrorIs(t, err, httpx.ErrInvalidState)

	allowed := newTestService(repo, ServiceConfig{AllowNegativeInventory: true})
	txn, err := allowed.Adjustment(context.Background(), AdjustmentInput{ProductID: 1, LocationID: 1, Quantity: -5, Reason: "cycle count"})
	require.NoError(t, err)
	require.Equal(t, "cycle count", txn.Notes)
	require.Equal(t, -3, onHand(repo, 1, 1))
}

func TestCreateRejectsZeroQuantityAndWrongSign(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Create(context.Background(), CreateInput{ProductID: 1, LocationID: 1, Type: TypeAdjustment, Quantity: 0})
	require.ErrorIs(t, err, httpx.ErrBusinessRule)

	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, LocationID: 1, Type: TypeIn, Quantity: -4})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, LocationID: 1, Type: TypeOut, Quantity: 4})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, LocationID: 1, Type: Type("BOGUS"), Quantity: 1})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateUnknownRefs(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Create(context.Background(), CreateInput{ProductID: 9, LocationID: 1, Type: TypeIn, Quantity: 5})
	require.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, LocationID: 9, Type: TypeIn, Quantity: 5})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateBatchRollsBackOnFirstFailure(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.CreateBatch(context.Background(), []CreateInput{
		{ProductID: 1, LocationID: 1, Type: TypeIn, Quantity: 10},
		{ProductID: 1, LocationID: 1, Type: TypeOut, Quantity: -25},
	})
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)
	require.Equal(t, 0, onHand(repo, 1, 1))
	require.Empty(t, repo.log)
}

func TestCreateBatchAppliesSequentially(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	txns, err := svc.CreateBatch(context.Background(), []CreateInput{
		{ProductID: 1, LocationID: 1, Type: TypeIn, Quantity: 10},
		{ProductID: 1, LocationID: 1, Type: TypeOut, Quantity: -4},
	})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, 6, onHand(repo, 1, 1))
}

func TestListPagination(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1})
	svc := newTestService(repo, ServiceConfig{})

	for i := 0; i < 5; i++ {
		_, err := svc.Receipt(context.Background(), ReceiptInput{ProductID: 1, LocationID: 1, Quantity: 1})
		require.NoError(t, err)
	}

	items, pagination, err := svc.List(context.Background(), ListFilter{}, shared.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 5, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
}

func TestSummarize(t *testing.T) {
	repo := newFakeRepo()
	seed(repo, []int64{1}, []int64{1, 2})
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Receipt(context.Background(), ReceiptInput{ProductID: 1, LocationID: 1, Quantity: 20})
	require.NoError(t, err)
	_, err = svc.Shipment(context.Background(), ShipmentInput{ProductID: 1, LocationID: 1, Quantity: 5})
	require.NoError(t, err)
	_, err = svc.Transfer(context.Background(), TransferInput{ProductID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 3})
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(4), summary.TotalTransactions)
	require.Equal(t, int64(23), summary.TotalInbound)
	require.Equal(t, int64(8), summary.TotalOutbound)
	require.Equal(t, int64(15), summary.NetChange)
	require.Equal(t, int64(2), summary.ByType[TypeTransfer])
}
