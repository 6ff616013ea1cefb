package models

import "time"

// Product holds master data for a molded part. RequiredTonnage and
// CycleTimeSeconds are optional: master data is often incomplete during
// early adoption and the scheduler degrades gracefully without it.
type Product struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"-"`
	ProductCode      string    `db:"product_code" json:"product_code"`
	ProductName      string    `db:"product_name" json:"product_name"`
	UnitPrice        *float64  `db:"unit_price" json:"unit_price,omitempty"`
	UnitCost         *float64  `db:"unit_cost" json:"unit_cost,omitempty"`
	RequiredTonnage  *int      `db:"required_tonnage" json:"required_tonnage,omitempty"`
	CycleTimeSeconds *float64  `db:"cycle_time" json:"cycle_time,omitempty"`
	CavityCount      int       `db:"cavity_count" json:"cavity_count"`
	MinStock         int       `db:"min_stock" json:"min_stock"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
