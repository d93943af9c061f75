package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

const supplierColumns = `id, name, COALESCE(contact_person,''), COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), lead_time_days, COALESCE(payment_terms,''), minimum_order_qty, performance_rating, is_active, created_at, updated_at`

// ProductCounts summarizes products referencing a supplier.
type ProductCounts struct {
	Total  int
	Active int
}

// ReceiptStats summarizes IN transactions across a supplier's products.
type ReceiptStats struct {
	Count    int
	Quantity int64
}

// RepositoryPort abstracts supplier persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, s Supplier) (Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Supplier, int64, error)
	Update(ctx context.Context, s Supplier) (Supplier, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	SetRating(ctx context.Context, id int64, rating float64) error
	ActiveIDs(ctx context.Context) ([]int64, error)
	ProductCounts(ctx context.Context, id int64) (ProductCounts, error)
	ReceiptStats(ctx context.Context, id int64) (ReceiptStats, error)
	Statistics(ctx context.Context) (Statistics, error)
	NeedingReview(ctx context.Context) ([]Supplier, error)
}

// Repository persists suppliers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, contact_person, email, phone, address, lead_time_days, payment_terms, minimum_order_qty, is_active, created_at, updated_at)
VALUES ($1,NULLIF($2,''),NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,NULLIF($7,''),$8,TRUE,NOW(),NOW())
RETURNING id, is_active, created_at, updated_at`,
		s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.LeadTimeDays, s.PaymentTerms, s.MinimumOrderQty).
		Scan(&s.ID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return Supplier{}, fmt.Errorf("%w: supplier %q", httpx.ErrDuplicate, s.Name)
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.LeadTimeDays, &s.PaymentTerms, &s.MinimumOrderQty, &s.PerformanceRating, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Supplier, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active=$%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM suppliers"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf("SELECT "+supplierColumns+" FROM suppliers%s ORDER BY name LIMIT $%d OFFSET $%d", where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result, err := scanSuppliers(rows)
	return result, total, err
}

func (r *Repository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `UPDATE suppliers SET name=$2, contact_person=NULLIF($3,''), email=NULLIF($4,''), phone=NULLIF($5,''), address=NULLIF($6,''), lead_time_days=$7, payment_terms=NULLIF($8,''), minimum_order_qty=$9, is_active=$10, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`,
		s.ID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.LeadTimeDays, s.PaymentTerms, s.MinimumOrderQty, s.IsActive).
		Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, s.ID)
		}
		if isDuplicate(err) {
			return Supplier{}, fmt.Errorf("%w: supplier %q", httpx.ErrDuplicate, s.Name)
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) SetRating(ctx context.Context, id int64, rating float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET performance_rating=$2, updated_at=NOW() WHERE id=$1`, id, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) ActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM suppliers WHERE is_active ORDER BY id`)
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

func (r *Repository) ProductCounts(ctx context.Context, id int64) (ProductCounts, error) {
	var c ProductCounts
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM products WHERE supplier_id=$1`, id).
		Scan(&c.Total, &c.Active)
	return c, err
}

func (r *Repository) ReceiptStats(ctx context.Context, id int64) (ReceiptStats, error) {
	var s ReceiptStats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(t.quantity), 0)
FROM transactions t
JOIN products p ON p.id = t.product_id
WHERE p.supplier_id=$1 AND t.transaction_type='IN'`, id).
		Scan(&s.Count, &s.Quantity)
	return s, err
}

func (r *Repository) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
	COUNT(*) FILTER (WHERE is_active),
	COALESCE(AVG(lead_time_days), 0),
	COALESCE(AVG(performance_rating), 0),
	COUNT(*) FILTER (WHERE performance_rating IS NULL)
FROM suppliers`).
		Scan(&stats.TotalSuppliers, &stats.ActiveSuppliers, &stats.AverageLeadTime, &stats.AverageRating, &stats.SuppliersWithout)
	if err != nil {
		return Statistics{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE performance_rating IS NOT NULL ORDER BY performance_rating DESC, name LIMIT 5`)
	if err != nil {
		return Statistics{}, err
	}
	defer rows.Close()
	stats.TopByRating, err = scanSuppliers(rows)
	return stats, err
}

func (r *Repository) NeedingReview(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers
WHERE is_active AND (performance_rating IS NULL OR performance_rating < 3.0) ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSuppliers(rows)
}

func scanSuppliers(rows pgx.Rows) ([]Supplier, error) {
	result := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.LeadTimeDays, &s.PaymentTerms, &s.MinimumOrderQty, &s.PerformanceRating, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
