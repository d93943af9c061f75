package locations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

const locationColumns = `id, name, COALESCE(code,''), COALESCE(address,''), COALESCE(warehouse_type,''), is_active, created_at, updated_at`

// RepositoryPort abstracts location persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, l Location) (Location, error)
	Get(ctx context.Context, id int64) (Location, error)
	GetByCode(ctx context.Context, code string) (Location, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Location, int64, error)
	Update(ctx context.Context, l Location) (Location, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	StockOnHand(ctx context.Context, id int64) (int64, error)
	HasTransactions(ctx context.Context, id int64) (bool, error)
	DeleteZeroInventoryRows(ctx context.Context, id int64) error
	Activity(ctx context.Context, id int64, since time.Time) (Activity, error)
	InventorySummary(ctx context.Context, id int64) (InventorySummary, error)
	Statistics(ctx context.Context) (Statistics, error)
}

// Repository persists locations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, l Location) (Location, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO locations (name, code, address, warehouse_type, is_active, created_at, updated_at)
VALUES ($1,NULLIF($2,''),NULLIF($3,''),NULLIF($4,''),TRUE,NOW(),NOW())
RETURNING id, is_active, created_at, updated_at`,
		l.Name, l.Code, l.Address, l.WarehouseType).
		Scan(&l.ID, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return Location{}, fmt.Errorf("%w: location %q", httpx.ErrDuplicate, l.Name)
		}
		return Location{}, err
	}
	return l, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Location, error) {
	return r.get(ctx, `SELECT `+locationColumns+` FROM locations WHERE id=$1`, id)
}

func (r *Repository) GetByCode(ctx context.Context, code string) (Location, error) {
	return r.get(ctx, `SELECT `+locationColumns+` FROM locations WHERE code=$1`, code)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (Location, error) {
	var l Location
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&l.ID, &l.Name, &l.Code, &l.Address, &l.WarehouseType, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, fmt.Errorf("%w: location %v", httpx.ErrNotFound, arg)
		}
		return Location{}, err
	}
	return l, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Location, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.WarehouseType != "" {
		args = append(args, filter.WarehouseType)
		where += fmt.Sprintf(" AND warehouse_type=$%d", len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active=$%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM locations"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT "+locationColumns+" FROM locations%s ORDER BY name LIMIT $%d OFFSET $%d", where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Location{}
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Code, &l.Address, &l.WarehouseType, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, l)
	}
	return result, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, l Location) (Location, error) {
	err := r.pool.QueryRow(ctx, `UPDATE locations SET name=$2, code=NULLIF($3,''), address=NULLIF($4,''), warehouse_type=NULLIF($5,''), is_active=$6, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`,
		l.ID, l.Name, l.Code, l.Address, l.WarehouseType, l.IsActive).
		Scan(&l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, fmt.Errorf("%w: location %d", httpx.ErrNotFound, l.ID)
		}
		if isDuplicate(err) {
			return Location{}, fmt.Errorf("%w: location %q", httpx.ErrDuplicate, l.Name)
		}
		return Location{}, err
	}
	return l, nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE locations SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM locations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) StockOnHand(ctx context.Context, id int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(ABS(quantity_on_hand) + reserved_quantity), 0) FROM inventory WHERE location_id=$1`, id).Scan(&total)
	return total, err
}

func (r *Repository) HasTransactions(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE location_id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *Repository) DeleteZeroInventoryRows(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inventory WHERE location_id=$1 AND quantity_on_hand=0 AND reserved_quantity=0`, id)
	return err
}

func (r *Repository) Activity(ctx context.Context, id int64, since time.Time) (Activity, error) {
	activity := Activity{LocationID: id, CountsByType: map[string]int64{}}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
	COUNT(*) FILTER (WHERE quantity > 0),
	COUNT(*) FILTER (WHERE quantity < 0),
	COALESCE(SUM(quantity), 0)
FROM transactions WHERE location_id=$1 AND created_at >= $2`, id, since).
		Scan(&activity.TotalTransactions, &activity.InboundCount, &activity.OutboundCount, &activity.NetQuantityChange)
	if err != nil {
		return Activity{}, err
	}

	typeRows, err := r.pool.Query(ctx, `SELECT transaction_type, COUNT(*) FROM transactions
WHERE location_id=$1 AND created_at >= $2 GROUP BY transaction_type`, id, since)
	if err != nil {
		return Activity{}, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t string
		var count int64
		if err := typeRows.Scan(&t, &count); err != nil {
			return Activity{}, err
		}
		activity.CountsByType[t] = count
	}
	if err := typeRows.Err(); err != nil {
		return Activity{}, err
	}

	recent, err := r.pool.Query(ctx, `SELECT t.id, t.product_id, p.sku, t.transaction_type, t.quantity, COALESCE(t.reference_number,''), t.created_at
FROM transactions t
JOIN products p ON p.id = t.product_id
WHERE t.location_id=$1 AND t.created_at >= $2
ORDER BY t.created_at DESC, t.id DESC LIMIT 10`, id, since)
	if err != nil {
		return Activity{}, err
	}
	defer recent.Close()
	activity.RecentMovements = []ActivityMovement{}
	for recent.Next() {
		var m ActivityMovement
		if err := recent.Scan(&m.ID, &m.ProductID, &m.SKU, &m.Type, &m.Quantity, &m.ReferenceNumber, &m.CreatedAt); err != nil {
			return Activity{}, err
		}
		activity.RecentMovements = append(activity.RecentMovements, m)
	}
	return activity, recent.Err()
}

func (r *Repository) InventorySummary(ctx context.Context, id int64) (InventorySummary, error) {
	summary := InventorySummary{LocationID: id}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
	COALESCE(SUM(i.quantity_on_hand), 0),
	COALESCE(SUM(i.reserved_quantity), 0),
	COALESCE(SUM(GREATEST(i.quantity_on_hand - i.reserved_quantity, 0)), 0),
	COALESCE(SUM(i.quantity_on_hand * p.unit_cost), 0)
FROM inventory i
JOIN products p ON p.id = i.product_id
WHERE i.location_id=$1`, id).
		Scan(&summary.ProductCount, &summary.TotalOnHand, &summary.TotalReserved, &summary.TotalAvailable, &summary.TotalValue)
	return summary, err
}

func (r *Repository) Statistics(ctx context.Context) (Statistics, error) {
	stats := Statistics{WarehouseTypes: map[string]int64{}}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM locations`).
		Scan(&stats.TotalLocations, &stats.ActiveLocations)
	if err != nil {
		return Statistics{}, err
	}

	typeRows, err := r.pool.Query(ctx, `SELECT COALESCE(warehouse_type,'unspecified'), COUNT(*) FROM locations GROUP BY warehouse_type`)
	if err != nil {
		return Statistics{}, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t string
		var count int64
		if err := typeRows.Scan(&t, &count); err != nil {
			return Statistics{}, err
		}
		stats.WarehouseTypes[t] = count
	}
	if err := typeRows.Err(); err != nil {
		return Statistics{}, err
	}

	topRows, err := r.pool.Query(ctx, `SELECT l.id, l.name, COALESCE(SUM(i.quantity_on_hand), 0) AS total
FROM locations l
LEFT JOIN inventory i ON i.location_id = l.id
GROUP BY l.id, l.name
ORDER BY total DESC, l.name LIMIT 5`)
	if err != nil {
		return Statistics{}, err
	}
	defer topRows.Close()
	stats.TopByOnHand = []TopLocation{}
	for topRows.Next() {
		var top TopLocation
		if err := topRows.Scan(&top.LocationID, &top.Name, &top.TotalOnHand); err != nil {
			return Statistics{}, err
		}
		stats.TopByOnHand = append(stats.TopByOnHand, top)
	}
	return stats, topRows.Err()
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
