package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartflow-mes/smartflow-api/internal/models"
)

const inventoryColumns = "id, user_id, product_code, product_name, current_stock, unit, location, min_stock, max_stock, unit_cost, last_updated, created_at"

// InventoryRepository manages persistence for stock items and reorder policies.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository constructs an InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// List returns a tenant's stock items with an optional search filter.
func (r *InventoryRepository) List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Inventory, int, error) {
	base := "FROM inventory WHERE user_id = $1"
	args := []interface{}{userID}
	if search != "" {
		base += fmt.Sprintf(" AND (LOWER(product_code) LIKE $%d OR LOWER(product_name) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY product_code ASC LIMIT %d OFFSET %d", inventoryColumns, base, pageSize, offset)
	var rows []models.Inventory
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}
	return rows, total, nil
}

// ListByUser returns every stock item the tenant owns.
func (r *InventoryRepository) ListByUser(ctx context.Context, userID string) ([]models.Inventory, error) {
	query := fmt.Sprintf("SELECT %s FROM inventory WHERE user_id = $1 ORDER BY product_code ASC", inventoryColumns)
	var rows []models.Inventory
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list inventory by user: %w", err)
	}
	return rows, nil
}

// FindByCode fetches one stock item by product_code.
func (r *InventoryRepository) FindByCode(ctx context.Context, userID, productCode string) (*models.Inventory, error) {
	query := fmt.Sprintf("SELECT %s FROM inventory WHERE user_id = $1 AND product_code = $2 LIMIT 1", inventoryColumns)
	var item models.Inventory
	if err := r.db.GetContext(ctx, &item, query, userID, productCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find inventory item: %w", err)
	}
	return &item, nil
}

// Create inserts a new stock item.
func (r *InventoryRepository) Create(ctx context.Context, item *models.Inventory) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.LastUpdated = now

	const query = `INSERT INTO inventory (id, user_id, product_code, product_name, current_stock, unit, location, min_stock, max_stock, unit_cost, last_updated, created_at)
        VALUES (:id, :user_id, :product_code, :product_name, :current_stock, :unit, :location, :min_stock, :max_stock, :unit_cost, :last_updated, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

// Update persists mutable stock item fields.
func (r *InventoryRepository) Update(ctx context.Context, item *models.Inventory) error {
	item.LastUpdated = time.Now().UTC()
	const query = `UPDATE inventory SET product_name = :product_name, current_stock = :current_stock, unit = :unit,
        location = :location, min_stock = :min_stock, max_stock = :max_stock, unit_cost = :unit_cost, last_updated = :last_updated
        WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a stock item.
func (r *InventoryRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM inventory WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpsertPolicy stores the computed reorder policy for a product, replacing any
// previous one.
func (r *InventoryRepository) UpsertPolicy(ctx context.Context, policy *models.InventoryPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	policy.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO inventory_policies (id, user_id, product_code, safety_stock, reorder_point, recommended_order_qty, lead_time_days, service_level, updated_at)
        VALUES (:id, :user_id, :product_code, :safety_stock, :reorder_point, :recommended_order_qty, :lead_time_days, :service_level, :updated_at)
        ON CONFLICT (user_id, product_code)
        DO UPDATE SET safety_stock = EXCLUDED.safety_stock, reorder_point = EXCLUDED.reorder_point,
                      recommended_order_qty = EXCLUDED.recommended_order_qty, lead_time_days = EXCLUDED.lead_time_days,
                      service_level = EXCLUDED.service_level, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("upsert inventory policy: %w", err)
	}
	return nil
}

// FindPolicy fetches the stored reorder policy for a product.
func (r *InventoryRepository) FindPolicy(ctx context.Context, userID, productCode string) (*models.InventoryPolicy, error) {
	const query = `SELECT id, user_id, product_code, safety_stock, reorder_point, recommended_order_qty, lead_time_days, service_level, updated_at
        FROM inventory_policies WHERE user_id = $1 AND product_code = $2 LIMIT 1`
	var policy models.InventoryPolicy
	if err := r.db.GetContext(ctx, &policy, query, userID, productCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find inventory policy: %w", err)
	}
	return &policy, nil
}

// ListPolicies returns all stored reorder policies for a tenant.
func (r *InventoryRepository) ListPolicies(ctx context.Context, userID string) ([]models.InventoryPolicy, error) {
	const query = `SELECT id, user_id, product_code, safety_stock, reorder_point, recommended_order_qty, lead_time_days, service_level, updated_at
        FROM inventory_policies WHERE user_id = $1 ORDER BY product_code ASC`
	var policies []models.InventoryPolicy
	if err := r.db.SelectContext(ctx, &policies, query, userID); err != nil {
		return nil, fmt.Errorf("list inventory policies: %w", err)
	}
	return policies, nil
}
