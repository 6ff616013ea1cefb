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

const equipmentColumns = "id, user_id, machine_id, machine_name, tonnage, capacity_per_hour, shift_start, shift_end, status, created_at, updated_at"

// EquipmentRepository manages persistence for the machine registry.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository constructs an EquipmentRepository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// List returns a tenant's machines matching the provided filters.
func (r *EquipmentRepository) List(ctx context.Context, userID string, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	base := "FROM equipment WHERE user_id = $1"
	args := []interface{}{userID}

	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(machine_id) LIKE $%d OR LOWER(machine_name) LIKE $%d)", len(args)+1, len(args)+1)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY machine_id ASC LIMIT %d OFFSET %d", equipmentColumns, base, size, offset)
	var rows []models.Equipment
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}
	return rows, total, nil
}

// ListActive returns the tenant's active machines ordered by machine_id.
func (r *EquipmentRepository) ListActive(ctx context.Context, userID string) ([]models.Equipment, error) {
	query := fmt.Sprintf("SELECT %s FROM equipment WHERE user_id = $1 AND status = $2 ORDER BY machine_id ASC", equipmentColumns)
	var rows []models.Equipment
	if err := r.db.SelectContext(ctx, &rows, query, userID, models.EquipmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active equipment: %w", err)
	}
	return rows, nil
}

// FindByID fetches one machine owned by the tenant.
func (r *EquipmentRepository) FindByID(ctx context.Context, userID, id string) (*models.Equipment, error) {
	query := fmt.Sprintf("SELECT %s FROM equipment WHERE user_id = $1 AND id = $2 LIMIT 1", equipmentColumns)
	var eq models.Equipment
	if err := r.db.GetContext(ctx, &eq, query, userID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find equipment: %w", err)
	}
	return &eq, nil
}

// ExistsByMachineID checks for a duplicate machine_id, optionally excluding one row.
func (r *EquipmentRepository) ExistsByMachineID(ctx context.Context, userID, machineID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM equipment WHERE user_id = $1 AND machine_id = $2"
	args := []interface{}{userID, machineID}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check machine id: %w", err)
	}
	return true, nil
}

// Create inserts a new machine.
func (r *EquipmentRepository) Create(ctx context.Context, eq *models.Equipment) error {
	if eq.ID == "" {
		eq.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if eq.CreatedAt.IsZero() {
		eq.CreatedAt = now
	}
	eq.UpdatedAt = now

	const query = `INSERT INTO equipment (id, user_id, machine_id, machine_name, tonnage, capacity_per_hour, shift_start, shift_end, status, created_at, updated_at)
        VALUES (:id, :user_id, :machine_id, :machine_name, :tonnage, :capacity_per_hour, :shift_start, :shift_end, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, eq); err != nil {
		return fmt.Errorf("create equipment: %w", err)
	}
	return nil
}

// Update persists mutable machine fields.
func (r *EquipmentRepository) Update(ctx context.Context, eq *models.Equipment) error {
	eq.UpdatedAt = time.Now().UTC()
	const query = `UPDATE equipment SET machine_name = :machine_name, tonnage = :tonnage, capacity_per_hour = :capacity_per_hour,
        shift_start = :shift_start, shift_end = :shift_end, status = :status, updated_at = :updated_at
        WHERE id = :id AND user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, eq)
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a machine from the registry.
func (r *EquipmentRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM equipment WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActive returns the number of active machines for a tenant.
func (r *EquipmentRepository) CountActive(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM equipment WHERE user_id = $1 AND status = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, models.EquipmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active equipment: %w", err)
	}
	return total, nil
}
