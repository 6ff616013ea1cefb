package dto

// CreateOrderRequest places a production order. DueDate uses "2006-01-02".
type CreateOrderRequest struct {
	OrderNumber string `json:"order_number" validate:"required,max=50"`
	ProductCode string `json:"product_code" validate:"required,max=50"`
	ProductName string `json:"product_name" validate:"omitempty,max=100"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
	Priority    int    `json:"priority" validate:"omitempty,min=1,max=5"`
	IsUrgent    bool   `json:"is_urgent"`
	Notes       string `json:"notes" validate:"omitempty,max=500"`
}

// UpdateOrderRequest patches an order; nil fields are untouched.
type UpdateOrderRequest struct {
	ProductName *string `json:"product_name" validate:"omitempty,max=100"`
	Quantity    *int    `json:"quantity" validate:"omitempty,gt=0"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Priority    *int    `json:"priority" validate:"omitempty,min=1,max=5"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending scheduled completed cancelled"`
	IsUrgent    *bool   `json:"is_urgent"`
	Notes       *string `json:"notes" validate:"omitempty,max=500"`
}
