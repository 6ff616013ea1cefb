package models

import "time"

// Equipment statuses. Only active machines take part in scheduling runs.
const (
	EquipmentStatusActive      = "active"
	EquipmentStatusIdle        = "idle"
	EquipmentStatusMaintenance = "maintenance"
)

// Equipment represents an injection-molding machine registered by a tenant.
// ShiftStart and ShiftEnd use the wire format "HH:MM".
type Equipment struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"-"`
	MachineID       string    `db:"machine_id" json:"machine_id"`
	MachineName     string    `db:"machine_name" json:"machine_name"`
	Tonnage         int       `db:"tonnage" json:"tonnage"`
	CapacityPerHour int       `db:"capacity_per_hour" json:"capacity_per_hour"`
	ShiftStart      string    `db:"shift_start" json:"shift_start"`
	ShiftEnd        string    `db:"shift_end" json:"shift_end"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EquipmentFilter captures listing criteria for the equipment registry.
type EquipmentFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}
