package dto

// CreateEquipmentRequest registers a machine.
type CreateEquipmentRequest struct {
	MachineID       string `json:"machine_id" validate:"required,max=50"`
	MachineName     string `json:"machine_name" validate:"omitempty,max=100"`
	Tonnage         int    `json:"tonnage" validate:"required,gt=0"`
	CapacityPerHour int    `json:"capacity_per_hour" validate:"required,gt=0"`
	ShiftStart      string `json:"shift_start" validate:"omitempty,len=5"`
	ShiftEnd        string `json:"shift_end" validate:"omitempty,len=5"`
	Status          string `json:"status" validate:"omitempty,oneof=active idle maintenance"`
}

// UpdateEquipmentRequest patches a machine; nil fields are untouched.
type UpdateEquipmentRequest struct {
	MachineName     *string `json:"machine_name" validate:"omitempty,max=100"`
	Tonnage         *int    `json:"tonnage" validate:"omitempty,gt=0"`
	CapacityPerHour *int    `json:"capacity_per_hour" validate:"omitempty,gt=0"`
	ShiftStart      *string `json:"shift_start" validate:"omitempty,len=5"`
	ShiftEnd        *string `json:"shift_end" validate:"omitempty,len=5"`
	Status          *string `json:"status" validate:"omitempty,oneof=active idle maintenance"`
}
