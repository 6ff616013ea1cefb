package dto

// PredictRequest asks for a demand forecast for one product.
type PredictRequest struct {
	ProductCode string `json:"product_code" validate:"required,max=50"`
}

// HorizonForecast carries one horizon's prediction.
type HorizonForecast struct {
	HorizonDays     int    `json:"horizon_days"`
	ForecastDate    string `json:"forecast_date"`
	PredictedDemand int    `json:"predicted_demand"`
	ConfidenceLower int    `json:"confidence_lower"`
	ConfidenceUpper int    `json:"confidence_upper"`
	Method          string `json:"method"`
}

// ProductForecastResponse bundles all horizons for a product.
type ProductForecastResponse struct {
	ProductCode string            `json:"product_code"`
	HistoryDays int               `json:"history_days"`
	Horizons    []HorizonForecast `json:"horizons"`
	GeneratedAt string            `json:"generated_at"`
}

// BatchForecastSummary reports how many products were queued for forecasting.
type BatchForecastSummary struct {
	QueuedProducts int      `json:"queued_products"`
	ProductCodes   []string `json:"product_codes"`
}

// ForecastStatusEntry describes forecasting readiness for one product.
type ForecastStatusEntry struct {
	ProductCode string `json:"product_code"`
	HistoryDays int    `json:"history_days"`
	Method      string `json:"method"`
}

// ForecastStatusResponse lists readiness across the tenant's products.
type ForecastStatusResponse struct {
	Products []ForecastStatusEntry `json:"products"`
}
