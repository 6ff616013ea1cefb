package models

import "time"

// Inventory stock risk statuses derived from days of cover.
const (
	InventoryStatusNormal  = "normal"
	InventoryStatusWarning = "warning"
	InventoryStatusUrgent  = "urgent"
	InventoryStatusExcess  = "excess"
	InventoryStatusReorder = "reorder"
)

// Inventory tracks current stock for a product.
type Inventory struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"-"`
	ProductCode  string    `db:"product_code" json:"product_code"`
	ProductName  string    `db:"product_name" json:"product_name"`
	CurrentStock int       `db:"current_stock" json:"current_stock"`
	Unit         string    `db:"unit" json:"unit"`
	Location     *string   `db:"location" json:"location,omitempty"`
	MinStock     int       `db:"min_stock" json:"min_stock"`
	MaxStock     *int      `db:"max_stock" json:"max_stock,omitempty"`
	UnitCost     *float64  `db:"unit_cost" json:"unit_cost,omitempty"`
	LastUpdated  time.Time `db:"last_updated" json:"last_updated"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// InventoryPolicy stores the reorder parameters computed from demand forecasts.
type InventoryPolicy struct {
	ID                  string    `db:"id" json:"id"`
	UserID              string    `db:"user_id" json:"-"`
	ProductCode         string    `db:"product_code" json:"product_code"`
	SafetyStock         int       `db:"safety_stock" json:"safety_stock"`
	ReorderPoint        int       `db:"reorder_point" json:"reorder_point"`
	RecommendedOrderQty int       `db:"recommended_order_qty" json:"recommended_order_qty"`
	LeadTimeDays        int       `db:"lead_time_days" json:"lead_time_days"`
	ServiceLevel        float64   `db:"service_level" json:"service_level"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}
