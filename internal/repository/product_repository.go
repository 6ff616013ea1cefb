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

const productColumns = "id, user_id, product_code, product_name, unit_price, unit_cost, required_tonnage, cycle_time, cavity_count, min_stock, created_at, updated_at"

// ProductRepository manages persistence for product master data.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs a ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns a tenant's products with an optional search filter.
func (r *ProductRepository) List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Product, int, error) {
	base := "FROM products WHERE user_id = $1"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY product_code ASC LIMIT %d OFFSET %d", productColumns, base, pageSize, offset)
	var rows []models.Product
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	return rows, total, nil
}

// ListByUser returns every product the tenant owns.
func (r *ProductRepository) ListByUser(ctx context.Context, userID string) ([]models.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE user_id = $1 ORDER BY product_code ASC", productColumns)
	var rows []models.Product
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list products by user: %w", err)
	}
	return rows, nil
}

// FindByCode fetches one product by its product_code.
func (r *ProductRepository) FindByCode(ctx context.Context, userID, productCode string) (*models.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE user_id = $1 AND product_code = $2 LIMIT 1", productColumns)
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, userID, productCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &product, nil
}

// ExistsByCode checks for a duplicate product_code, optionally excluding one row.
func (r *ProductRepository) ExistsByCode(ctx context.Context, userID, productCode, excludeID string) (bool, error) {
	query := "SELECT 1 FROM products WHERE user_id = $1 AND product_code = $2"
	args := []interface{}{userID, productCode}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check product code: %w", err)
	}
	return true, nil
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	const query = `INSERT INTO products (id, user_id, product_code, product_name, unit_price, unit_cost, required_tonnage, cycle_time, cavity_count, min_stock, created_at, updated_at)
        VALUES (:id, :user_id, :product_code, :product_name, :unit_price, :unit_cost, :required_tonnage, :cycle_time, :cavity_count, :min_stock, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, product); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update persists mutable product fields.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	const query = `UPDATE products SET product_name = :product_name, unit_price = :unit_price, unit_cost = :unit_cost,
        required_tonnage = :required_tonnage, cycle_time = :cycle_time, cavity_count = :cavity_count, min_stock = :min_stock, updated_at = :updated_at
        WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, product)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM products WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
