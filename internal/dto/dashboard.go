package dto

// DashboardSummary aggregates today's operational picture.
type DashboardSummary struct {
	PendingOrders   int    `json:"pending_orders"`
	ScheduledOrders int    `json:"scheduled_orders"`
	CompletedOrders int    `json:"completed_orders"`
	CancelledOrders int    `json:"cancelled_orders"`
	OverdueOrders   int    `json:"overdue_orders"`
	ActiveEquipment int    `json:"active_equipment"`
	TodayJobs       int    `json:"today_jobs"`
	GeneratedAt     string `json:"generated_at"`
}

// ProductionProgressEntry reports completion of one scheduled job today.
type ProductionProgressEntry struct {
	OrderNumber     string  `json:"order_number"`
	ProductCode     string  `json:"product_code"`
	MachineID       string  `json:"machine_id"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	ProgressPercent float64 `json:"progress_percent"`
	Status          string  `json:"status"`
}

// DashboardAlert flags a condition needing operator attention.
type DashboardAlert struct {
	Level       string `json:"level"`
	Message     string `json:"message"`
	OrderNumber string `json:"order_number,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}
