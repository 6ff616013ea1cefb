package dto

// CreateInventoryRequest registers stock for a product.
type CreateInventoryRequest struct {
	ProductCode  string   `json:"product_code" validate:"required,max=50"`
	ProductName  string   `json:"product_name" validate:"required,max=100"`
	CurrentStock int      `json:"current_stock" validate:"gte=0"`
	Unit         string   `json:"unit" validate:"omitempty,max=20"`
	Location     *string  `json:"location" validate:"omitempty,max=100"`
	MinStock     int      `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock     *int     `json:"max_stock" validate:"omitempty,gt=0"`
	UnitCost     *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
}

// UpdateInventoryRequest patches stock records; nil fields are untouched.
type UpdateInventoryRequest struct {
	ProductName  *string  `json:"product_name" validate:"omitempty,max=100"`
	CurrentStock *int     `json:"current_stock" validate:"omitempty,gte=0"`
	Unit         *string  `json:"unit" validate:"omitempty,max=20"`
	Location     *string  `json:"location" validate:"omitempty,max=100"`
	MinStock     *int     `json:"min_stock" validate:"omitempty,gte=0"`
	MaxStock     *int     `json:"max_stock" validate:"omitempty,gt=0"`
	UnitCost     *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
}

// InventoryItemResponse augments a stock row with forecast-derived risk.
type InventoryItemResponse struct {
	ID           string   `json:"id"`
	ProductCode  string   `json:"product_code"`
	ProductName  string   `json:"product_name"`
	CurrentStock int      `json:"current_stock"`
	Unit         string   `json:"unit"`
	Location     *string  `json:"location,omitempty"`
	MinStock     int      `json:"min_stock"`
	MaxStock     *int     `json:"max_stock,omitempty"`
	UnitCost     *float64 `json:"unit_cost,omitempty"`
	Status       string   `json:"status"`
	DaysLeft     *float64 `json:"days_left,omitempty"`
	WeekDemand   int      `json:"week_demand"`
}

// CalculatePolicyRequest computes reorder parameters for a product.
type CalculatePolicyRequest struct {
	ProductCode  string  `json:"product_code" validate:"required,max=50"`
	LeadTimeDays int     `json:"lead_time_days" validate:"omitempty,gt=0"`
	ServiceLevel float64 `json:"service_level" validate:"omitempty,gt=0,lte=1"`
}

// PolicyResponse reports the computed reorder parameters.
type PolicyResponse struct {
	ProductCode         string  `json:"product_code"`
	SafetyStock         int     `json:"safety_stock"`
	ReorderPoint        int     `json:"reorder_point"`
	RecommendedOrderQty int     `json:"recommended_order_qty"`
	LeadTimeDays        int     `json:"lead_time_days"`
	ServiceLevel        float64 `json:"service_level"`
	AvgDailyDemand      int     `json:"avg_daily_demand"`
	StdDeviation        int     `json:"std_deviation"`
}

// StockStatusResponse compares current stock against the stored policy.
type StockStatusResponse struct {
	ProductCode         string `json:"product_code"`
	CurrentStock        int    `json:"current_stock"`
	SafetyStock         int    `json:"safety_stock"`
	ReorderPoint        int    `json:"reorder_point"`
	RecommendedOrderQty int    `json:"recommended_order_qty"`
	Status              string `json:"status"`
}

// InventoryAlert flags a product whose stock fell below policy thresholds.
type InventoryAlert struct {
	ProductCode string `json:"product_code"`
	Level       string `json:"level"`
	Message     string `json:"message"`
}
