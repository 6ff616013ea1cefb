package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/smartflow-mes/smartflow-api/internal/models"
)

const orderColumns = "id, user_id, order_number, product_code, product_name, quantity, due_date, priority, status, is_urgent, notes, created_at, updated_at"

// OrderRepository manages persistence for production orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository constructs an OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// List returns a tenant's orders matching the provided filters.
func (r *OrderRepository) List(ctx context.Context, userID string, filter models.OrderFilter) ([]models.Order, int, error) {
	base := "FROM orders WHERE user_id = $1"
	args := []interface{}{userID}

	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.Urgent != nil {
		base += fmt.Sprintf(" AND is_urgent = $%d", len(args)+1)
		args = append(args, *filter.Urgent)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(order_number) LIKE $%d OR LOWER(product_code) LIKE $%d OR LOWER(product_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY priority ASC, due_date ASC LIMIT %d OFFSET %d", orderColumns, base, size, offset)
	var rows []models.Order
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches one order owned by the tenant.
func (r *OrderRepository) FindByID(ctx context.Context, userID, id string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE user_id = $1 AND id = $2 LIMIT 1", orderColumns)
	var order models.Order
	if err := r.db.GetContext(ctx, &order, query, userID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

// ExistsByOrderNumber checks for a duplicate order_number, optionally excluding one row.
func (r *OrderRepository) ExistsByOrderNumber(ctx context.Context, userID, orderNumber, excludeID string) (bool, error) {
	query := "SELECT 1 FROM orders WHERE user_id = $1 AND order_number = $2"
	args := []interface{}{userID, orderNumber}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check order number: %w", err)
	}
	return true, nil
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	const query = `INSERT INTO orders (id, user_id, order_number, product_code, product_name, quantity, due_date, priority, status, is_urgent, notes, created_at, updated_at)
        VALUES (:id, :user_id, :order_number, :product_code, :product_name, :quantity, :due_date, :priority, :status, :is_urgent, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// Update persists mutable order fields.
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	const query = `UPDATE orders SET product_code = :product_code, product_name = :product_name, quantity = :quantity,
        due_date = :due_date, priority = :priority, status = :status, is_urgent = :is_urgent, notes = :notes, updated_at = :updated_at
        WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an order.
func (r *OrderRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM orders WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSchedulable returns orders eligible for a scheduling run. Scheduled
// orders are included so a re-generation re-plans them alongside pending work.
// When orderIDs is non-empty the selection is restricted to those rows.
func (r *OrderRepository) ListSchedulable(ctx context.Context, userID string, orderIDs []string) ([]models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE user_id = $1 AND status = ANY($2)", orderColumns)
	args := []interface{}{userID, pq.Array([]string{models.OrderStatusPending, models.OrderStatusScheduled})}
	if len(orderIDs) > 0 {
		query += fmt.Sprintf(" AND id = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(orderIDs))
	}
	query += " ORDER BY priority ASC, due_date ASC"

	var rows []models.Order
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedulable orders: %w", err)
	}
	return rows, nil
}

// MarkScheduledTx flips the given orders to scheduled inside an open transaction.
func (r *OrderRepository) MarkScheduledTx(ctx context.Context, tx *sqlx.Tx, userID string, orderIDs []string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	const query = `UPDATE orders SET status = $1, updated_at = $2 WHERE user_id = $3 AND id = ANY($4)`
	if _, err := tx.ExecContext(ctx, query, models.OrderStatusScheduled, time.Now().UTC(), userID, pq.Array(orderIDs)); err != nil {
		return fmt.Errorf("mark orders scheduled: %w", err)
	}
	return nil
}

// CountByStatus returns order counts keyed by status.
func (r *OrderRepository) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM orders WHERE user_id = $1 GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// ListOverduePending returns pending orders whose due date has passed.
func (r *OrderRepository) ListOverduePending(ctx context.Context, userID string, asOf time.Time) ([]models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE user_id = $1 AND status = $2 AND due_date < $3 ORDER BY due_date ASC", orderColumns)
	var rows []models.Order
	if err := r.db.SelectContext(ctx, &rows, query, userID, models.OrderStatusPending, asOf); err != nil {
		return nil, fmt.Errorf("list overdue orders: %w", err)
	}
	return rows, nil
}

// HistoryDays counts distinct order dates for a product, used to pick a
// forecast method.
func (r *OrderRepository) HistoryDays(ctx context.Context, userID, productCode string) (int, error) {
	const query = `SELECT COUNT(DISTINCT DATE(created_at)) FROM orders WHERE user_id = $1 AND product_code = $2`
	var days int
	if err := r.db.GetContext(ctx, &days, query, userID, productCode); err != nil {
		return 0, fmt.Errorf("count history days: %w", err)
	}
	return days, nil
}

// ListRecentQuantities returns order quantities for a product placed at or
// after the cutoff, newest first.
func (r *OrderRepository) ListRecentQuantities(ctx context.Context, userID, productCode string, since time.Time) ([]int, error) {
	const query = `SELECT quantity FROM orders WHERE user_id = $1 AND product_code = $2 AND created_at >= $3 ORDER BY created_at DESC`
	var quantities []int
	if err := r.db.SelectContext(ctx, &quantities, query, userID, productCode, since); err != nil {
		return nil, fmt.Errorf("list recent quantities: %w", err)
	}
	return quantities, nil
}
