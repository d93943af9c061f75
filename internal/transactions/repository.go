package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockyard-erp/stockyard/internal/ledger"
	"github.com/stockyard-erp/stockyard/internal/platform/db"
	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

// Repository persists transactions and applies their ledger effects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations the processor runs inside one
// database transaction.
type TxRepository interface {
	EnsureRefs(ctx context.Context, productID, locationID int64) error
	GetRowForUpdate(ctx context.Context, productID, locationID int64) (ledger.Row, error)
	UpsertRow(ctx context.Context, row ledger.Row) error
	Insert(ctx context.Context, txn Transaction) (Transaction, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Transaction, int64, error)
	Summarize(ctx context.Context, filter ListFilter) (Summary, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("transactions repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	var txn Transaction
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, location_id, transaction_type, quantity, COALESCE(reference_number,''), COALESCE(notes,''), COALESCE(performed_by,''), created_at
FROM transactions WHERE id=$1`, id).
		Scan(&txn.ID, &txn.ProductID, &txn.LocationID, &txn.Type, &txn.Quantity, &txn.ReferenceNumber, &txn.Notes, &txn.PerformedBy, &txn.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("%w: transaction %d", httpx.ErrNotFound, id)
		}
		return Transaction{}, err
	}
	return txn, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Transaction, int64, error) {
	where, args := buildFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT id, product_id, location_id, transaction_type, quantity, COALESCE(reference_number,''), COALESCE(notes,''), COALESCE(performed_by,''), created_at
FROM transactions%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Transaction{}
	for rows.Next() {
		var txn Transaction
		if err := rows.Scan(&txn.ID, &txn.ProductID, &txn.LocationID, &txn.Type, &txn.Quantity, &txn.ReferenceNumber, &txn.Notes, &txn.PerformedBy, &txn.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, txn)
	}
	return result, total, rows.Err()
}

func (r *Repository) Summarize(ctx context.Context, filter ListFilter) (Summary, error) {
	where, args := buildFilter(filter)

	s := Summary{ByType: map[Type]int64{}}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0),
	COALESCE(SUM(quantity), 0)
FROM transactions`+where, args...).
		Scan(&s.TotalTransactions, &s.TotalInbound, &s.TotalOutbound, &s.NetChange)
	if err != nil {
		return Summary{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT transaction_type, COUNT(*) FROM transactions`+where+` GROUP BY transaction_type`, args...)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var t Type
		var count int64
		if err := rows.Scan(&t, &count); err != nil {
			return Summary{}, err
		}
		s.ByType[t] = count
	}
	return s, rows.Err()
}

func buildFilter(filter ListFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		where += fmt.Sprintf(" AND product_id=$%d", len(args))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID)
		where += fmt.Sprintf(" AND location_id=$%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND transaction_type=$%d", len(args))
	}
	if filter.ReferenceNumber != "" {
		args = append(args, filter.ReferenceNumber)
		where += fmt.Sprintf(" AND reference_number=$%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	return where, args
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

func (r *txRepository) GetRowForUpdate(ctx context.Context, productID, locationID int64) (ledger.Row, error) {
	var row ledger.Row
	err := r.tx.QueryRow(ctx, `SELECT id, product_id, location_id, quantity_on_hand, reserved_quantity, last_updated
FROM inventory WHERE product_id=$1 AND location_id=$2 FOR UPDATE`, productID, locationID).
		Scan(&row.ID, &row.ProductID, &row.LocationID, &row.OnHand, &row.Reserved, &row.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Row{ProductID: productID, LocationID: locationID}, ledger.ErrRowNotFound
		}
		return ledger.Row{}, err
	}
	return row, nil
}

func (r *txRepository) UpsertRow(ctx context.Context, row ledger.Row) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory (product_id, location_id, quantity_on_hand, reserved_quantity, last_updated)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity_on_hand=EXCLUDED.quantity_on_hand, reserved_quantity=EXCLUDED.reserved_quantity, last_updated=NOW()`,
		row.ProductID, row.LocationID, row.OnHand, row.Reserved)
	return err
}

func (r *txRepository) Insert(ctx context.Context, txn Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (product_id, location_id, transaction_type, quantity, reference_number, notes, performed_by, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NOW())
RETURNING id, created_at`,
		txn.ProductID, txn.LocationID, txn.Type, txn.Quantity, txn.ReferenceNumber, txn.Notes, txn.PerformedBy).
		Scan(&txn.ID, &txn.CreatedAt)
	return txn, err
}
