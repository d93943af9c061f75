package suppliers

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
	suppliers map[int64]Supplier
	byName    map[string]int64
	counts    map[int64]ProductCounts
	receipts  map[int64]ReceiptStats
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		suppliers: map[int64]Supplier{},
		byName:    map[string]int64{},
		counts:    map[int64]ProductCounts{},
		receipts:  map[int64]ReceiptStats{},
	}
}

func (f *fakeRepo) Create(ctx context.Context, s Supplier) (Supplier, error) {
	if _, exists := f.byName[s.Name]; exists {
		return Supplier{}, fmt.Errorf("%w: supplier %q", httpx.ErrDuplicate, s.Name)
	}
	f.nextID++
	s.ID = f.nextID
	s.IsActive = true
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	f.suppliers[s.ID] = s
	f.byName[s.Name] = s.ID
	return s, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return s, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Supplier, int64, error) {
	matched := []Supplier{}
	for _, s := range f.suppliers {
		if filter.IsActive != nil && s.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, s)
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeRepo) Update(ctx context.Context, s Supplier) (Supplier, error) {
	old, ok := f.suppliers[s.ID]
	if !ok {
		return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, s.ID)
	}
	if id, exists := f.byName[s.Name]; exists && id != s.ID {
		return Supplier{}, fmt.Errorf("%w: supplier %q", httpx.ErrDuplicate, s.Name)
	}
	delete(f.byName, old.Name)
	s.UpdatedAt = time.Now()
	f.suppliers[s.ID] = s
	f.byName[s.Name] = s.ID
	return s, nil
}

func (f *fakeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	s, ok := f.suppliers[id]
	if !ok {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	s.IsActive = active
	f.suppliers[id] = s
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	s, ok := f.suppliers[id]
	if !ok {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	delete(f.suppliers, id)
	delete(f.byName, s.Name)
	return nil
}

func (f *fakeRepo) SetRating(ctx context.Context, id int64, rating float64) error {
	s, ok := f.suppliers[id]
	if !ok {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	s.PerformanceRating = &rating
	f.suppliers[id] = s
	return nil
}

func (f *fakeRepo) ActiveIDs(ctx context.Context) ([]int64, error) {
	result := []int64{}
	for id, s := range f.suppliers {
		if s.IsActive {
			result = append(result, id)
		}
	}
	return result, nil
}

func (f *fakeRepo) ProductCounts(ctx context.Context, id int64) (ProductCounts, error) {
	return f.counts[id], nil
}

func (f *fakeRepo) ReceiptStats(ctx context.Context, id int64) (ReceiptStats, error) {
	return f.receipts[id], nil
}

func (f *fakeRepo) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{TotalSuppliers: len(f.suppliers)}
	for _, s := range f.suppliers {
		if s.IsActive {
			stats.ActiveSuppliers++
		}
		if s.PerformanceRating == nil {
			stats.SuppliersWithout++
		}
	}
	return stats, nil
}

func (f *fakeRepo) NeedingReview(ctx context.Context) ([]Supplier, error) {
	result := []Supplier{}
	for _, s := range f.suppliers {
		if !s.IsActive {
			continue
		}
		if s.PerformanceRating == nil || *s.PerformanceRating < 3.0 {
			result = append(result, s)
		}
	}
	return result, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, slog.Default())
}

func mustCreate(t *testing.T, svc *Service, input CreateInput) Supplier {
	t.Helper()
	s, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return s
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService(newFakeRepo())
	s := mustCreate(t, svc, CreateInput{Name: "Acme"})
	require.Equal(t, 7, s.LeadTimeDays)
	require.Equal(t, 1, s.MinimumOrderQty)
	require.True(t, s.IsActive)
}

func TestCreateDuplicateName(t *testing.T) {
	svc := newTestService(newFakeRepo())
	mustCreate(t, svc, CreateInput{Name: "Acme"})
	_, err := svc.Create(context.Background(), CreateInput{Name: "Acme"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestSoftDeleteBlockedByActiveProducts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	s := mustCreate(t, svc, CreateInput{Name: "Acme"})
	repo.counts[s.ID] = ProductCounts{Total: 3, Active: 2}

	err := svc.SoftDelete(context.Background(), s.ID)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.True(t, repo.suppliers[s.ID].IsActive)
}

func TestSoftDeleteWithOnlyInactiveProducts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	s := mustCreate(t, svc, CreateInput{Name: "Acme"})
	repo.counts[s.ID] = ProductCounts{Total: 3, Active: 0}

	require.NoError(t, svc.SoftDelete(context.Background(), s.ID))
	require.False(t, repo.suppliers[s.ID].IsActive)
}

func TestHardDeleteBlockedByAnyProduct(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	s := mustCreate(t, svc, CreateInput{Name: "Acme"})
	repo.counts[s.ID] = ProductCounts{Total: 1}

	err := svc.HardDelete(context.Background(), s.ID)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.Contains(t, repo.suppliers, s.ID)
}

func TestHardDeleteRemoves(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	s := mustCreate(t, svc, CreateInput{Name: "Acme"})

	require.NoError(t, svc.HardDelete(context.Background(), s.ID))
	require.NotContains(t, repo.suppliers, s.ID)
}

func TestPerformanceScore(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	lead := 12
	s := mustCreate(t, svc, CreateInput{Name: "Acme", LeadTimeDays: &lead})
	repo.counts[s.ID] = ProductCounts{Total: 4, Active: 4}
	repo.receipts[s.ID] = ReceiptStats{Count: 23, Quantity: 900}

	perf, err := svc.Performance(context.Background(), s.ID)
	require.NoError(t, err)
	// activity = min(5, 2.3) = 2.3; lead = max(0, 5 - 1.2) = 3.8; avg 3.05
	require.InDelta(t, 3.05, perf.Score, 0.001)
	require.Equal(t, 23, perf.ReceiptCount)
	require.Equal(t, int64(900), perf.QuantityReceived)
}

func TestPerformanceScoreCapsActivity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	lead := 0
	s := mustCreate(t, svc, CreateInput{Name: "Acme", LeadTimeDays: &lead})
	repo.counts[s.ID] = ProductCounts{Total: 1, Active: 1}
	repo.receipts[s.ID] = ReceiptStats{Count: 200, Quantity: 5000}

	perf, err := svc.Performance(context.Background(), s.ID)
	require.NoError(t, err)
	require.InDelta(t, 5.0, perf.Score, 0.001)
}

func TestPerformanceZeroWithoutProductsOrReceipts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	s := mustCreate(t, svc, CreateInput{Name: "Acme"})

	perf, err := svc.Performance(context.Background(), s.ID)
	require.NoError(t, err)
	require.Zero(t, perf.Score)

	repo.counts[s.ID] = ProductCounts{Total: 2, Active: 2}
	perf, err = svc.Performance(context.Background(), s.ID)
	require.NoError(t, err)
	require.Zero(t, perf.Score)
}

func TestRefreshRatingPersists(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	lead := 10
	s := mustCreate(t, svc, CreateInput{Name: "Acme", LeadTimeDays: &lead})
	repo.counts[s.ID] = ProductCounts{Total: 1, Active: 1}
	repo.receipts[s.ID] = ReceiptStats{Count: 50, Quantity: 100}

	perf, err := svc.RefreshRating(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, repo.suppliers[s.ID].PerformanceRating)
	require.InDelta(t, perf.Score, *repo.suppliers[s.ID].PerformanceRating, 0.001)
}

func TestRefreshAllRatings(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	a := mustCreate(t, svc, CreateInput{Name: "Acme"})
	b := mustCreate(t, svc, CreateInput{Name: "Bolt"})
	require.NoError(t, svc.SoftDelete(context.Background(), b.ID))

	updated, err := svc.RefreshAllRatings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, updated)
	require.NotNil(t, repo.suppliers[a.ID].PerformanceRating)
}

func TestNeedingReview(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	a := mustCreate(t, svc, CreateInput{Name: "Unrated"})
	b := mustCreate(t, svc, CreateInput{Name: "Poor"})
	c := mustCreate(t, svc, CreateInput{Name: "Good"})
	require.NoError(t, repo.SetRating(context.Background(), b.ID, 2.4))
	require.NoError(t, repo.SetRating(context.Background(), c.ID, 4.1))

	items, err := svc.NeedingReview(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	ids := []int64{items[0].ID, items[1].ID}
	require.ElementsMatch(t, []int64{a.ID, b.ID}, ids)
}
