package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockyard-erp/stockyard/internal/platform/db"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

// Repository persists ledger rows in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	EnsureRefs(ctx context.Context, productID, locationID int64) error
	GetRowForUpdate(ctx context.Context, productID, locationID int64) (Row, error)
	UpsertRow(ctx context.Context, row Row) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter Filter) ([]Row, error)
	Get(ctx context.Context, productID, locationID int64) (Row, error)
	TotalAvailable(ctx context.Context, productID int64) (int, error)
	ActiveProductAvailability(ctx context.Context) ([]ProductAvailability, error)
	Summary(ctx context.Context) (Summary, error)
}

// ProductAvailability is the raw low-stock scan row: one active product with
// its aggregate availability and per-location breakdown.
type ProductAvailability struct {
	ProductID       int64
	SKU             string
	Name            string
	ReorderPoint    int
	ReorderQuantity int
	TotalAvailable  int
	Locations       []LocationBreakdown
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Row, error) {
	query := `SELECT id, product_id, location_id, quantity_on_hand, reserved_quantity, last_updated FROM inventory WHERE 1=1`
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND product_id=$%d", len(args))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID)
		query += fmt.Sprintf(" AND location_id=$%d", len(args))
	}
	query += " ORDER BY product_id, location_id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.ProductID, &row.LocationID, &row.OnHand, &row.Reserved, &row.LastUpdated); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *Repository) Get(ctx context.Context, productID, locationID int64) (Row, error) {
	var row Row
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, location_id, quantity_on_hand, reserved_quantity, last_updated
FROM inventory WHERE product_id=$1 AND location_id=$2`, productID, locationID).
		Scan(&row.ID, &row.ProductID, &row.LocationID, &row.OnHand, &row.Reserved, &row.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{ProductID: productID, LocationID: locationID}, ErrRowNotFound
		}
		return Row{}, err
	}
	return row, nil
}

func (r *Repository) TotalAvailable(ctx context.Context, productID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(GREATEST(quantity_on_hand - reserved_quantity, 0)), 0)
FROM inventory WHERE product_id=$1`, productID).Scan(&total)
	return total, err
}

func (r *Repository) ActiveProductAvailability(ctx context.Context) ([]ProductAvailability, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, p.reorder_point, p.reorder_quantity,
	COALESCE(SUM(GREATEST(i.quantity_on_hand - i.reserved_quantity, 0)), 0) AS total_available
FROM products p
LEFT JOIN inventory i ON i.product_id = p.id
WHERE p.is_active
GROUP BY p.id, p.sku, p.name, p.reorder_point, p.reorder_quantity
ORDER BY p.sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []ProductAvailability{}
	index := map[int64]int{}
	for rows.Next() {
		var pa ProductAvailability
		if err := rows.Scan(&pa.ProductID, &pa.SKU, &pa.Name, &pa.ReorderPoint, &pa.ReorderQuantity, &pa.TotalAvailable); err != nil {
			return nil, err
		}
		index[pa.ProductID] = len(result)
		result = append(result, pa)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	breakdown, err := r.pool.Query(ctx, `SELECT i.product_id, i.location_id, l.name, i.quantity_on_hand, i.reserved_quantity
FROM inventory i
JOIN locations l ON l.id = i.location_id
JOIN products p ON p.id = i.product_id
WHERE p.is_active
ORDER BY i.product_id, l.name`)
	if err != nil {
		return nil, err
	}
	defer breakdown.Close()

	for breakdown.Next() {
		var productID int64
		var loc LocationBreakdown
		if err := breakdown.Scan(&productID, &loc.LocationID, &loc.LocationName, &loc.OnHand, &loc.Reserved); err != nil {
			return nil, err
		}
		if avail := loc.OnHand - loc.Reserved; avail > 0 {
			loc.Available = avail
		}
		if i, ok := index[productID]; ok {
			result[i].Locations = append(result[i].Locations, loc)
		}
	}
	return result, breakdown.Err()
}

func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
	COUNT(DISTINCT i.product_id),
	COUNT(DISTINCT i.location_id),
	COALESCE(SUM(i.quantity_on_hand), 0),
	COALESCE(SUM(i.reserved_quantity), 0),
	COALESCE(SUM(GREATEST(i.quantity_on_hand - i.reserved_quantity, 0)), 0),
	COALESCE(SUM(i.quantity_on_hand * p.unit_cost), 0)
FROM inventory i
JOIN products p ON p.id = i.product_id`).
		Scan(&s.TotalRows, &s.TotalProducts, &s.TotalLocations, &s.TotalOnHand, &s.TotalReserved, &s.TotalAvailable, &s.TotalValue)
	return s, err
}

func (r *txRepository) EnsureRefs(ctx context.Context, productID, locationID int64) error {
	var exists bool
	if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, productID)
	}
	if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id=$1)`, locationID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, locationID)
	}
	return nil
}

func (r *txRepository) GetRowForUpdate(ctx context.Context, productID, locationID int64) (Row, error) {
	var row Row
	err := r.tx.QueryRow(ctx, `SELECT id, product_id, location_id, quantity_on_hand, reserved_quantity, last_updated
FROM inventory WHERE product_id=$1 AND location_id=$2 FOR UPDATE`, productID, locationID).
		Scan(&row.ID, &row.ProductID, &row.LocationID, &row.OnHand, &row.Reserved, &row.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{ProductID: productID, LocationID: locationID}, ErrRowNotFound
		}
		return Row{}, err
	}
	return row, nil
}

func (r *txRepository) UpsertRow(ctx context.Context, row Row) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory (product_id, location_id, quantity_on_hand, reserved_quantity, last_updated)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity_on_hand=EXCLUDED.quantity_on_hand, reserved_quantity=EXCLUDED.reserved_quantity, last_updated=NOW()`,
		row.ProductID, row.LocationID, row.OnHand, row.Reserved)
	return err
}
