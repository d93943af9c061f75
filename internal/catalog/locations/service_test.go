package locations

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

type fakeRepo struct {
	locations map[int64]Location
	byName    map[string]int64
	byCode    map[string]int64
	stock     map[int64]int64
	withTxns  map[int64]bool
	zeroRows  map[int64]int
	activity  map[int64]Activity
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		locations: map[int64]Location{},
		byName:    map[string]int64{},
		byCode:    map[string]int64{},
		stock:     map[int64]int64{},
		withTxns:  map[int64]bool{},
		zeroRows:  map[int64]int{},
		activity:  map[int64]Activity{},
	}
}

func (f *fakeRepo) Create(ctx context.Context, l Location) (Location, error) {
	if _, exists := f.byName[l.Name]; exists {
		return Location{}, fmt.Errorf("%w: location %q", httpx.ErrDuplicate, l.Name)
	}
	if l.Code != "" {
		if _, exists := f.byCode[l.Code]; exists {
			return Location{}, fmt.Errorf("%w: location %q", httpx.ErrDuplicate, l.Code)
		}
	}
	f.nextID++
	l.ID = f.nextID
	l.IsActive = true
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	f.locations[l.ID] = l
	f.byName[l.Name] = l.ID
	if l.Code != "" {
		f.byCode[l.Code] = l.ID
	}
	return l, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Location, error) {
	l, ok := f.locations[id]
	if !ok {
		return Location{}, fmt.Errorf("%w: location %d", httpx.ErrNotFound, id)
	}
	return l, nil
}

func (f *fakeRepo) GetByCode(ctx context.Context, code string) (Location, error) {
	id, ok := f.byCode[code]
	if !ok {
		return Location{}, fmt.Errorf("%w: location %s", httpx.ErrNotFound, code)
	}
	return f.locations[id], nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Location, int64, error) {
	matched := []Location{}
	for _, l := range f.locations {
		if filter.WarehouseType != "" && l.WarehouseType != filter.WarehouseType {
			continue
		}
		if filter.IsActive != nil && l.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, l)
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeRepo) Update(ctx context.Context, l Location) (Location, error) {
	old, ok := f.locations[l.ID]
	if !ok {
		return Location{}, fmt.Errorf("%w: location %d", httpx.ErrNotFound, l.ID)
	}
	delete(f.byName, old.Name)
	delete(f.byCode, old.Code)
	l.UpdatedAt = time.Now()
	f.locations[l.ID] = l
	f.byName[l.Name] = l.ID
	if l.Code != "" {
		f.byCode[l.Code] = l.ID
	}
	return l, nil
}

func (f *fakeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	l, ok := f.locations[id]
	if !ok {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, id)
	}
	l.IsActive = active
	f.locations[id] = l
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	l, ok := f.locations[id]
	if !ok {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, id)
	}
	delete(f.locations, id)
	delete(f.byName, l.Name)
	delete(f.byCode, l.Code)
	return nil
}

func (f *fakeRepo) StockOnHand(ctx context.Context, id int64) (int64, error) {
	return f.stock[id], nil
}

func (f *fakeRepo) HasTransactions(ctx context.Context, id int64) (bool, error) {
	return f.withTxns[id], nil
}

func (f *fakeRepo) DeleteZeroInventoryRows(ctx context.Context, id int64) error {
	f.zeroRows[id] = 0
	return nil
}

func (f *fakeRepo) Activity(ctx context.Context, id int64, since time.Time) (Activity, error) {
	return f.activity[id], nil
}

func (f *fakeRepo) InventorySummary(ctx context.Context, id int64) (InventorySummary, error) {
	return InventorySummary{LocationID: id, TotalOnHand: f.stock[id]}, nil
}

func (f *fakeRepo) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{TotalLocations: len(f.locations), WarehouseTypes: map[string]int64{}}
	for _, l := range f.locations {
		if l.IsActive {
			stats.ActiveLocations++
		}
	}
	return stats, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, slog.Default())
}

func mustCreate(t *testing.T, svc *Service, input CreateInput) Location {
	t.Helper()
	l, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return l
}

func TestCreateNormalizesCode(t *testing.T) {
	svc := newTestService(newFakeRepo())
	l := mustCreate(t, svc, CreateInput{Name: "Main Warehouse", Code: " wh-main "})
	require.Equal(t, "WH-MAIN", l.Code)
	require.True(t, l.IsActive)
}

func TestCreateDuplicateName(t *testing.T) {
	svc := newTestService(newFakeRepo())
	mustCreate(t, svc, CreateInput{Name: "Main"})
	_, err := svc.Create(context.Background(), CreateInput{Name: "Main"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestGetByCode(t *testing.T) {
	svc := newTestService(newFakeRepo())
	l := mustCreate(t, svc, CreateInput{Name: "Main", Code: "WH1"})

	found, err := svc.GetByCode(context.Background(), "wh1")
	require.NoError(t, err)
	require.Equal(t, l.ID, found.ID)

	_, err = svc.GetByCode(context.Background(), "nope")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSoftDeleteBlockedByStock(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	l := mustCreate(t, svc, CreateInput{Name: "Main"})
	repo.stock[l.ID] = 25

	err := svc.SoftDelete(context.Background(), l.ID)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.True(t, repo.locations[l.ID].IsActive)
}

func TestSoftDeleteEmptyLocation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	l := mustCreate(t, svc, CreateInput{Name: "Main"})

	require.NoError(t, svc.SoftDelete(context.Background(), l.ID))
	require.False(t, repo.locations[l.ID].IsActive)
}

func TestHardDeleteBlockedByHistory(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	l := mustCreate(t, svc, CreateInput{Name: "Main"})
	repo.withTxns[l.ID] = true

	err := svc.HardDelete(context.Background(), l.ID)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.Contains(t, repo.locations, l.ID)
}

func TestHardDeleteRemovesEmptyLocation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	l := mustCreate(t, svc, CreateInput{Name: "Main"})
	repo.zeroRows[l.ID] = 3

	require.NoError(t, svc.HardDelete(context.Background(), l.ID))
	require.NotContains(t, repo.locations, l.ID)
	require.Zero(t, repo.zeroRows[l.ID])
}

func TestActivityDefaultsWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	l := mustCreate(t, svc, CreateInput{Name: "Main"})
	repo.activity[l.ID] = Activity{TotalTransactions: 7, InboundCount: 4, OutboundCount: 3, NetQuantityChange: 12}

	activity, err := svc.Activity(context.Background(), l.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 30, activity.Days)
	require.Equal(t, "Main", activity.Name)
	require.Equal(t, int64(7), activity.TotalTransactions)
}

func TestActivityUnknownLocation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.Activity(context.Background(), 99, 7)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestInventorySummary(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	l := mustCreate(t, svc, CreateInput{Name: "Main"})
	repo.stock[l.ID] = 120

	summary, err := svc.InventorySummary(context.Background(), l.ID)
	require.NoError(t, err)
	require.Equal(t, "Main", summary.Name)
	require.Equal(t, int64(120), summary.TotalOnHand)
}
