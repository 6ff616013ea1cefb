package dto

// GenerateScheduleRequest triggers a scheduling run. An empty OrderIDs list
// schedules every pending order owned by the caller.
type GenerateScheduleRequest struct {
	OrderIDs []string `json:"order_ids" validate:"omitempty,dive,required"`
}

// ScheduleEntryResponse is one assignment in a schedule result.
type ScheduleEntryResponse struct {
	OrderNumber     string `json:"order_number"`
	ProductCode     string `json:"product_code"`
	MachineID       string `json:"machine_id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	IsOnTime        bool   `json:"is_on_time"`
	DueDate         string `json:"due_date"`
	Quantity        int    `json:"quantity"`
	Status          string `json:"status,omitempty"`
}

// ScheduleMetricsResponse summarises a scheduling run.
type ScheduleMetricsResponse struct {
	OnTimeRate   float64 `json:"on_time_rate"`
	Utilization  float64 `json:"utilization"`
	TotalOrders  int     `json:"total_orders"`
	OnTimeOrders int     `json:"on_time_orders"`
	LateOrders   int     `json:"late_orders"`
}

// GenerateScheduleResponse returns the produced schedule with its metrics.
type GenerateScheduleResponse struct {
	ScheduleID    string                  `json:"schedule_id"`
	Schedules     []ScheduleEntryResponse `json:"schedules"`
	Metrics       ScheduleMetricsResponse `json:"metrics"`
	SkippedOrders []string                `json:"skipped_orders,omitempty"`
	GeneratedAt   string                  `json:"generated_at"`
}

// ScheduleResultQuery selects a stored run; empty ScheduleID means latest.
type ScheduleResultQuery struct {
	ScheduleID string `form:"schedule_id" json:"schedule_id"`
}

// GanttTask is one bar on the per-machine gantt chart.
type GanttTask struct {
	OrderNumber     string `json:"order_number"`
	ProductCode     string `json:"product_code"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	IsOnTime        bool   `json:"is_on_time"`
	Status          string `json:"status"`
}

// GanttMachine groups tasks by machine.
type GanttMachine struct {
	MachineID string      `json:"machine_id"`
	Tasks     []GanttTask `json:"tasks"`
}
