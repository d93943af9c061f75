package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

const productColumns = `id, sku, name, COALESCE(description,''), COALESCE(category,''), unit_cost, unit_price, COALESCE(weight,0), COALESCE(dimensions,''), reorder_point, reorder_quantity, supplier_id, is_active, created_at, updated_at`

// RepositoryPort abstracts product persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, p Product) (Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int64, error)
	Update(ctx context.Context, p Product) (Product, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
	SupplierActive(ctx context.Context, supplierID int64) (bool, error)
	ActiveLocationIDs(ctx context.Context) ([]int64, error)
	SeedInventoryRows(ctx context.Context, productID int64, locationIDs []int64) error
	HasTransactions(ctx context.Context, productID int64) (bool, error)
	HasNonZeroInventory(ctx context.Context, productID int64) (bool, error)
	DeleteZeroInventoryRows(ctx context.Context, productID int64) error
}

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, description, category, unit_cost, unit_price, weight, dimensions, reorder_point, reorder_quantity, supplier_id, is_active, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,NULLIF($8,''),$9,$10,$11,TRUE,NOW(),NOW())
RETURNING id, is_active, created_at, updated_at`,
		p.SKU, p.Name, p.Description, p.Category, p.UnitCost, p.UnitPrice, p.Weight, p.Dimensions, p.ReorderPoint, p.ReorderQuantity, p.SupplierID).
		Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return Product{}, fmt.Errorf("%w: sku %q", httpx.ErrDuplicate, p.SKU)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
}

func (r *Repository) GetBySKU(ctx context.Context, sku string) (Product, error) {
	return r.get(ctx, `SELECT `+productColumns+` FROM products WHERE sku=$1`, sku)
}

func (r *Repository) get(ctx context.Context, query string, arg any) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.UnitCost, &p.UnitPrice, &p.Weight, &p.Dimensions, &p.ReorderPoint, &p.ReorderQuantity, &p.SupplierID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %v", httpx.ErrNotFound, arg)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Product, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category=$%d", len(args))
	}
	if filter.SupplierID != 0 {
		args = append(args, filter.SupplierID)
		where += fmt.Sprintf(" AND supplier_id=$%d", len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active=$%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT "+productColumns+" FROM products%s ORDER BY sku LIMIT $%d OFFSET $%d", where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.UnitCost, &p.UnitPrice, &p.Weight, &p.Dimensions, &p.ReorderPoint, &p.ReorderQuantity, &p.SupplierID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `UPDATE products SET name=$2, description=NULLIF($3,''), category=NULLIF($4,''), unit_cost=$5, unit_price=$6, weight=$7, dimensions=NULLIF($8,''), reorder_point=$9, reorder_quantity=$10, supplier_id=$11, is_active=$12, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.Category, p.UnitCost, p.UnitPrice, p.Weight, p.Dimensions, p.ReorderPoint, p.ReorderQuantity, p.SupplierID, p.IsActive).
		Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %d", httpx.ErrNotFound, p.ID)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products WHERE category IS NOT NULL ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *Repository) SupplierActive(ctx context.Context, supplierID int64) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT is_active FROM suppliers WHERE id=$1`, supplierID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, supplierID)
	}
	return active, err
}

func (r *Repository) ActiveLocationIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM locations WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

func (r *Repository) SeedInventoryRows(ctx context.Context, productID int64, locationIDs []int64) error {
	for _, locationID := range locationIDs {
		_, err := r.pool.Exec(ctx, `INSERT INTO inventory (product_id, location_id, quantity_on_hand, reserved_quantity, last_updated)
VALUES ($1,$2,0,0,NOW()) ON CONFLICT (product_id, location_id) DO NOTHING`, productID, locationID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) HasTransactions(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE product_id=$1)`, productID).Scan(&exists)
	return exists, err
}

func (r *Repository) HasNonZeroInventory(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id=$1 AND (quantity_on_hand <> 0 OR reserved_quantity <> 0))`, productID).Scan(&exists)
	return exists, err
}

func (r *Repository) DeleteZeroInventoryRows(ctx context.Context, productID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inventory WHERE product_id=$1 AND quantity_on_hand=0 AND reserved_quantity=0`, productID)
	return err
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
