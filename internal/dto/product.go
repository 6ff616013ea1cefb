package dto

// CreateProductRequest registers product master data.
type CreateProductRequest struct {
	ProductCode      string   `json:"product_code" validate:"required,max=50"`
	ProductName      string   `json:"product_name" validate:"required,max=100"`
	UnitPrice        *float64 `json:"unit_price" validate:"omitempty,gte=0"`
	UnitCost         *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
	RequiredTonnage  *int     `json:"required_tonnage" validate:"omitempty,gt=0"`
	CycleTimeSeconds *float64 `json:"cycle_time" validate:"omitempty,gt=0"`
	CavityCount      int      `json:"cavity_count" validate:"omitempty,gte=1"`
	MinStock         int      `json:"min_stock" validate:"omitempty,gte=0"`
}

// UpdateProductRequest patches product master data; nil fields are untouched.
type UpdateProductRequest struct {
	ProductName      *string  `json:"product_name" validate:"omitempty,max=100"`
	UnitPrice        *float64 `json:"unit_price" validate:"omitempty,gte=0"`
	UnitCost         *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
	RequiredTonnage  *int     `json:"required_tonnage" validate:"omitempty,gt=0"`
	CycleTimeSeconds *float64 `json:"cycle_time" validate:"omitempty,gt=0"`
	CavityCount      *int     `json:"cavity_count" validate:"omitempty,gte=1"`
	MinStock         *int     `json:"min_stock" validate:"omitempty,gte=0"`
}
