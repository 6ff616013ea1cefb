package models

import "time"

// Schedule entry statuses.
const (
	ScheduleStatusPlanned   = "planned"
	ScheduleStatusRunning   = "running"
	ScheduleStatusCompleted = "completed"
)

// Schedule represents one persisted assignment of an order to a machine.
// Rows are written once per scheduling run and never mutated afterwards.
type Schedule struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"-"`
	ScheduleID      string    `db:"schedule_id" json:"schedule_id"`
	OrderID         string    `db:"order_id" json:"order_id"`
	MachineID       string    `db:"machine_id" json:"machine_id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	IsOnTime        bool      `db:"is_on_time" json:"is_on_time"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ScheduleDetail joins a schedule row with its order for result views.
type ScheduleDetail struct {
	Schedule
	OrderNumber string `db:"order_number" json:"order_number"`
	ProductCode string `db:"product_code" json:"product_code"`
	Quantity    int    `db:"quantity" json:"quantity"`
}
