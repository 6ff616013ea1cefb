package models

import "time"

// Forecast methods reported by the demand forecaster. ML-backed forecasts
// come from an external service and land here with their own version tag.
const (
	ForecastMethodManual    = "manual"
	ForecastMethodRuleBased = "rule_based"
)

// Forecast stores one predicted daily demand figure for a product.
type Forecast struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"-"`
	ProductCode     string    `db:"product_code" json:"product_code"`
	ForecastDate    time.Time `db:"forecast_date" json:"forecast_date"`
	PredictedDemand int       `db:"predicted_demand" json:"predicted_demand"`
	ConfidenceLower int       `db:"confidence_lower" json:"confidence_lower"`
	ConfidenceUpper int       `db:"confidence_upper" json:"confidence_upper"`
	ActualDemand    *int      `db:"actual_demand" json:"actual_demand,omitempty"`
	ModelVersion    string    `db:"model_version" json:"model_version"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
