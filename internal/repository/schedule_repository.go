package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartflow-mes/smartflow-api/internal/models"
)

// ScheduleRepository provides persistence for scheduling run results.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// BulkCreateTx inserts all entries of one scheduling run inside an open
// transaction.
func (r *ScheduleRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.Schedule) error {
	const query = `INSERT INTO schedules (id, user_id, schedule_id, order_id, machine_id, start_time, end_time, duration_minutes, is_on_time, status, created_at)
        VALUES (:id, :user_id, :schedule_id, :order_id, :machine_id, :start_time, :end_time, :duration_minutes, :is_on_time, :status, :created_at)`
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, entries[i]); err != nil {
			return fmt.Errorf("insert schedule entry: %w", err)
		}
	}
	return nil
}

// ListByScheduleID returns all entries of one run joined with their orders,
// ordered by machine and start time.
func (r *ScheduleRepository) ListByScheduleID(ctx context.Context, userID, scheduleID string) ([]models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.user_id, s.schedule_id, s.order_id, s.machine_id, s.start_time, s.end_time, s.duration_minutes, s.is_on_time, s.status, s.created_at,
        o.order_number, o.product_code, o.quantity
        FROM schedules s
        JOIN orders o ON o.id = s.order_id
        WHERE s.user_id = $1 AND s.schedule_id = $2
        ORDER BY s.machine_id ASC, s.start_time ASC`
	var rows []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &rows, query, userID, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return rows, nil
}

// LatestScheduleID returns the identifier of the tenant's most recent run.
// Returns sql.ErrNoRows when the tenant has never generated a schedule.
func (r *ScheduleRepository) LatestScheduleID(ctx context.Context, userID string) (string, error) {
	const query = `SELECT schedule_id FROM schedules WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	var scheduleID string
	if err := r.db.GetContext(ctx, &scheduleID, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("latest schedule id: %w", err)
	}
	return scheduleID, nil
}

// ListForWindow returns entries whose window overlaps [from, to), joined with
// their orders. Used by the dashboard for today's production view.
func (r *ScheduleRepository) ListForWindow(ctx context.Context, userID string, from, to time.Time) ([]models.ScheduleDetail, error) {
	const query = `SELECT s.id, s.user_id, s.schedule_id, s.order_id, s.machine_id, s.start_time, s.end_time, s.duration_minutes, s.is_on_time, s.status, s.created_at,
        o.order_number, o.product_code, o.quantity
        FROM schedules s
        JOIN orders o ON o.id = s.order_id
        WHERE s.user_id = $1 AND s.start_time < $3 AND s.end_time >= $2
        ORDER BY s.start_time ASC`
	var rows []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &rows, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule window: %w", err)
	}
	return rows, nil
}

// CountForWindow returns the number of entries starting within [from, to).
func (r *ScheduleRepository) CountForWindow(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM schedules WHERE user_id = $1 AND start_time >= $2 AND start_time < $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, from, to); err != nil {
		return 0, fmt.Errorf("count schedule window: %w", err)
	}
	return total, nil
}
