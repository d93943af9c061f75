package products

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

type fakeInventoryRow struct {
	locationID int64
	onHand     int
	reserved   int
}

type fakeRepo struct {
	products        map[int64]Product
	bySKU           map[string]int64
	suppliers       map[int64]bool
	activeLocations []int64
	inventory       map[int64][]fakeInventoryRow
	withTxns        map[int64]bool
	nextID          int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:  map[int64]Product{},
		bySKU:     map[string]int64{},
		suppliers: map[int64]bool{},
		inventory: map[int64][]fakeInventoryRow{},
		withTxns:  map[int64]bool{},
	}
}

func (f *fakeRepo) Create(ctx context.Context, p Product) (Product, error) {
	if _, exists := f.bySKU[p.SKU]; exists {
		return Product{}, fmt.Errorf("%w: sku %q", httpx.ErrDuplicate, p.SKU)
	}
	f.nextID++
	p.ID = f.nextID
	p.IsActive = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.products[p.ID] = p
	f.bySKU[p.SKU] = p.ID
	return p, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeRepo) GetBySKU(ctx context.Context, sku string) (Product, error) {
	id, ok := f.bySKU[sku]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %s", httpx.ErrNotFound, sku)
	}
	return f.products[id], nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int64, error) {
	matched := []Product{}
	for _, p := range f.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.SupplierID != 0 && (p.SupplierID == nil || *p.SupplierID != filter.SupplierID) {
			continue
		}
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SKU < matched[j].SKU })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []Product{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeRepo) Update(ctx context.Context, p Product) (Product, error) {
	if _, ok := f.products[p.ID]; !ok {
		return Product{}, fmt.Errorf("%w: product %d", httpx.ErrNotFound, p.ID)
	}
	p.UpdatedAt = time.Now()
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	p, ok := f.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	p.IsActive = active
	f.products[id] = p
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	p, ok := f.products[id]
	if !ok {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	delete(f.products, id)
	delete(f.bySKU, p.SKU)
	return nil
}

func (f *fakeRepo) Categories(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	result := []string{}
	for _, p := range f.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			result = append(result, p.Category)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (f *fakeRepo) SupplierActive(ctx context.Context, supplierID int64) (bool, error) {
	active, ok := f.suppliers[supplierID]
	if !ok {
		return false, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, supplierID)
	}
	return active, nil
}

func (f *fakeRepo) ActiveLocationIDs(ctx context.Context) ([]int64, error) {
	return f.activeLocations, nil
}

func (f *fakeRepo) SeedInventoryRows(ctx context.Context, productID int64, locationIDs []int64) error {
	for _, id := range locationIDs {
		f.inventory[productID] = append(f.inventory[productID], fakeInventoryRow{locationID: id})
	}
	return nil
}

func (f *fakeRepo) HasTransactions(ctx context.Context, productID int64) (bool, error) {
	return f.withTxns[productID], nil
}

func (f *fakeRepo) HasNonZeroInventory(ctx context.Context, productID int64) (bool, error) {
	for _, row := range f.inventory[productID] {
		if row.onHand != 0 || row.reserved != 0 {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) DeleteZeroInventoryRows(ctx context.Context, productID int64) error {
	kept := []fakeInventoryRow{}
	for _, row := range f.inventory[productID] {
		if row.onHand != 0 || row.reserved != 0 {
			kept = append(kept, row)
		}
	}
	f.inventory[productID] = kept
	return nil
}

func newTestService(repo *fakeRepo, cfg ServiceConfig) *Service {
	return NewService(repo, cfg, nil, slog.Default())
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestCreateAppliesReorderDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{DefaultReorderPoint: 10, DefaultReorderQuantity: 50})

	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	require.Equal(t, 10, p.ReorderPoint)
	require.Equal(t, 50, p.ReorderQuantity)
	require.True(t, p.IsActive)
}

func TestCreateDuplicateSKU(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Other"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Len(t, repo.products, 1)
}

func TestCreateRejectsInactiveSupplier(t *testing.T) {
	repo := newFakeRepo()
	repo.suppliers[7] = false
	svc := newTestService(repo, ServiceConfig{})

	_, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget", SupplierID: int64Ptr(7)})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{SKU: "SKU-2", Name: "Widget", SupplierID: int64Ptr(8)})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateSeedsInventoryRows(t *testing.T) {
	repo := newFakeRepo()
	repo.activeLocations = []int64{1, 2, 3}
	svc := newTestService(repo, ServiceConfig{AutoCreateInventory: true})

	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	require.Len(t, repo.inventory[p.ID], 3)
}

func TestUpdatePartial(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget", Category: "tools"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), p.ID, UpdateInput{Name: strPtr("Widget Mk2")})
	require.NoError(t, err)
	require.Equal(t, "Widget Mk2", updated.Name)
	require.Equal(t, "tools", updated.Category)
	require.Equal(t, "SKU-1", updated.SKU)
}

func TestUpdateUnknownProduct(t *testing.T) {
	svc := newTestService(newFakeRepo(), ServiceConfig{})
	_, err := svc.Update(context.Background(), 42, UpdateInput{Name: strPtr("x")})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSoftDeleteDeactivates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(context.Background(), p.ID))
	require.False(t, repo.products[p.ID].IsActive)
}

func TestHardDeleteBlockedByHistory(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	repo.withTxns[p.ID] = true

	err = svc.HardDelete(context.Background(), p.ID)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.Contains(t, repo.products, p.ID)
}

func TestHardDeleteBlockedByStock(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	repo.inventory[p.ID] = []fakeInventoryRow{{locationID: 1, onHand: 4}}

	err = svc.HardDelete(context.Background(), p.ID)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
}

func TestHardDeleteSweepsZeroRows(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	p, err := svc.Create(context.Background(), CreateInput{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	repo.inventory[p.ID] = []fakeInventoryRow{{locationID: 1}, {locationID: 2}}

	require.NoError(t, svc.HardDelete(context.Background(), p.ID))
	require.Empty(t, repo.inventory[p.ID])
	require.NotContains(t, repo.products, p.ID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	for i := 0; i < 4; i++ {
		input := CreateInput{SKU: fmt.Sprintf("SKU-%d", i), Name: "Widget", Category: "tools"}
		if i == 3 {
			input.Category = "parts"
		}
		_, err := svc.Create(context.Background(), input)
		require.NoError(t, err)
	}

	items, pagination, err := svc.List(context.Background(), ListFilter{Category: "tools"}, shared.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 3, pagination.Total)
	require.Equal(t, 2, pagination.TotalPages)
}

func TestCategories(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, ServiceConfig{})
	_, err := svc.Create(context.Background(), CreateInput{SKU: "A", Name: "a", Category: "tools"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{SKU: "B", Name: "b", Category: "parts"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{SKU: "C", Name: "c", Category: "tools"})
	require.NoError(t, err)

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"parts", "tools"}, categories)
}
