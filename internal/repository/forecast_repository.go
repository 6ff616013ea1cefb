package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartflow-mes/smartflow-api/internal/models"
)

const forecastColumns = "id, user_id, product_code, forecast_date, predicted_demand, confidence_lower, confidence_upper, actual_demand, model_version, created_at"

// ForecastRepository manages persistence for demand forecasts.
type ForecastRepository struct {
	db *sqlx.DB
}

// NewForecastRepository constructs a ForecastRepository.
func NewForecastRepository(db *sqlx.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// ReplaceForProduct swaps out all future forecasts for a product in one
// transaction. A new run always supersedes the previous one.
func (r *ForecastRepository) ReplaceForProduct(ctx context.Context, userID, productCode string, forecasts []models.Forecast) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin forecast tx: %w", err)
	}

	const deleteQuery = `DELETE FROM forecasts WHERE user_id = $1 AND product_code = $2 AND forecast_date >= $3`
	if _, err := tx.ExecContext(ctx, deleteQuery, userID, productCode, time.Now().UTC().Truncate(24*time.Hour)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear forecasts: %w", err)
	}

	const insertQuery = `INSERT INTO forecasts (id, user_id, product_code, forecast_date, predicted_demand, confidence_lower, confidence_upper, actual_demand, model_version, created_at)
        VALUES (:id, :user_id, :product_code, :forecast_date, :predicted_demand, :confidence_lower, :confidence_upper, :actual_demand, :model_version, :created_at)`
	for i := range forecasts {
		if forecasts[i].ID == "" {
			forecasts[i].ID = uuid.NewString()
		}
		if forecasts[i].CreatedAt.IsZero() {
			forecasts[i].CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, insertQuery, forecasts[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert forecast: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit forecast tx: %w", err)
	}
	return nil
}

// ListRange returns forecasts for a product within [from, to), oldest first.
func (r *ForecastRepository) ListRange(ctx context.Context, userID, productCode string, from, to time.Time) ([]models.Forecast, error) {
	query := fmt.Sprintf("SELECT %s FROM forecasts WHERE user_id = $1 AND product_code = $2 AND forecast_date >= $3 AND forecast_date < $4 ORDER BY forecast_date ASC", forecastColumns)
	var rows []models.Forecast
	if err := r.db.SelectContext(ctx, &rows, query, userID, productCode, from, to); err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return rows, nil
}

// SumRange returns total predicted demand for a product within [from, to).
func (r *ForecastRepository) SumRange(ctx context.Context, userID, productCode string, from, to time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(predicted_demand), 0) FROM forecasts WHERE user_id = $1 AND product_code = $2 AND forecast_date >= $3 AND forecast_date < $4`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, productCode, from, to); err != nil {
		return 0, fmt.Errorf("sum forecasts: %w", err)
	}
	return total, nil
}
