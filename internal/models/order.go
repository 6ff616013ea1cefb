package models

import "time"

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusScheduled = "scheduled"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Priority tiers span 1..5 where 1 is the most important.
const (
	PriorityHighest = 1
	PriorityLowest  = 5
)

// Order represents a production order placed by a tenant. DueDate carries a
// calendar date (midnight UTC in storage).
type Order struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"-"`
	OrderNumber string    `db:"order_number" json:"order_number"`
	ProductCode string    `db:"product_code" json:"product_code"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	Priority    int       `db:"priority" json:"priority"`
	Status      string    `db:"status" json:"status"`
	IsUrgent    bool      `db:"is_urgent" json:"is_urgent"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OrderFilter captures listing criteria for orders.
type OrderFilter struct {
	Status   string
	Urgent   *bool
	Search   string
	Page     int
	PageSize int
}
