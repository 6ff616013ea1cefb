package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/export"
)

type scheduleEquipmentReader interface {
	ListActive(ctx context.Context, userID string) ([]models.Equipment, error)
}

type scheduleOrderRepository interface {
	ListSchedulable(ctx context.Context, userID string, orderIDs []string) ([]models.Order, error)
	MarkScheduledTx(ctx context.Context, tx *sqlx.Tx, userID string, orderIDs []string) error
}

type scheduleProductReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Product, error)
}

type scheduleRunRepository interface {
	BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.Schedule) error
	ListByScheduleID(ctx context.Context, userID, scheduleID string) ([]models.ScheduleDetail, error)
	LatestScheduleID(ctx context.Context, userID string) (string, error)
}

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleService runs the production scheduler over a tenant's data and
// persists the resulting plan.
type ScheduleService struct {
	equipment scheduleEquipmentReader
	orders    scheduleOrderRepository
	products  scheduleProductReader
	schedules scheduleRunRepository
	tx        txBeginner
	metrics   *MetricsService
	summaries summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService wires scheduler dependencies.
func NewScheduleService(
	equipment scheduleEquipmentReader,
	orders scheduleOrderRepository,
	products scheduleProductReader,
	schedules scheduleRunRepository,
	tx txBeginner,
	metrics *MetricsService,
	summaries summaryInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		equipment: equipment,
		orders:    orders,
		products:  products,
		schedules: schedules,
		tx:        tx,
		metrics:   metrics,
		summaries: summaries,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate loads the tenant snapshot, runs one greedy scheduling pass, and
// stores the produced entries while flipping the affected orders to
// "scheduled" inside a single transaction.
func (s *ScheduleService) Generate(ctx context.Context, userID string, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	equipment, err := s.equipment.ListActive(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	if len(equipment) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoActiveEquipment, "no active equipment, register machines before scheduling")
	}

	orders, err := s.orders.ListSchedulable(ctx, userID, req.OrderIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load orders")
	}
	if len(orders) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoPendingOrders, "no pending orders, create orders before scheduling")
	}

	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product master data")
	}

	engine, err := NewProductionScheduler(ScheduleInput{
		Equipment: equipment,
		Orders:    orders,
		Products:  products,
	}, s.now())
	if err != nil {
		return nil, err
	}
	started := time.Now()
	run := engine.Run()
	if s.metrics != nil {
		s.metrics.ObserveScheduleRun(len(run.SkippedOrders), time.Since(started))
	}

	if err := s.persistRun(ctx, userID, run); err != nil {
		return nil, err
	}
	if s.summaries != nil {
		s.summaries.InvalidateSummary(ctx, userID)
	}

	if len(run.SkippedOrders) > 0 {
		s.logger.Warn("orders skipped during scheduling",
			zap.String("schedule_id", run.ScheduleID),
			zap.Strings("order_numbers", run.SkippedOrders))
	}

	return buildGenerateResponse(run), nil
}

func (s *ScheduleService) persistRun(ctx context.Context, userID string, run ScheduleRun) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	entries := make([]models.Schedule, 0, len(run.Jobs))
	scheduledOrderIDs := make([]string, 0, len(run.Jobs))
	for _, job := range run.Jobs {
		entries = append(entries, models.Schedule{
			ID:              uuid.NewString(),
			UserID:          userID,
			ScheduleID:      run.ScheduleID,
			OrderID:         job.OrderID,
			MachineID:       job.MachineID,
			StartTime:       job.StartTime,
			EndTime:         job.EndTime,
			DurationMinutes: job.DurationMinutes,
			IsOnTime:        job.IsOnTime,
			Status:          models.ScheduleStatusPlanned,
			CreatedAt:       run.GeneratedAt,
		})
		scheduledOrderIDs = append(scheduledOrderIDs, job.OrderID)
	}

	if err = s.schedules.BulkCreateTx(ctx, tx, entries); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule entries")
		return err
	}
	if err = s.orders.MarkScheduledTx(ctx, tx, userID, scheduledOrderIDs); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update order status")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return err
	}
	return nil
}

// Result returns a stored run with metrics recomputed from its rows. An
// empty schedule id resolves to the tenant's most recent run.
func (s *ScheduleService) Result(ctx context.Context, userID string, query dto.ScheduleResultQuery) (*dto.GenerateScheduleResponse, error) {
	details, scheduleID, err := s.loadRun(ctx, userID, query.ScheduleID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return &dto.GenerateScheduleResponse{Schedules: []dto.ScheduleEntryResponse{}}, nil
	}

	active, err := s.equipment.ListActive(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}

	machineSet := make(map[string]struct{})
	jobs := make([]ScheduledJob, 0, len(details))
	entries := make([]dto.ScheduleEntryResponse, 0, len(details))
	for _, d := range details {
		machineSet[d.MachineID] = struct{}{}
		jobs = append(jobs, ScheduledJob{IsOnTime: d.IsOnTime, DurationMinutes: d.DurationMinutes})
		entries = append(entries, dto.ScheduleEntryResponse{
			OrderNumber:     d.OrderNumber,
			ProductCode:     d.ProductCode,
			MachineID:       d.MachineID,
			StartTime:       d.StartTime.Format(time.RFC3339),
			EndTime:         d.EndTime.Format(time.RFC3339),
			DurationMinutes: d.DurationMinutes,
			IsOnTime:        d.IsOnTime,
			Quantity:        d.Quantity,
			Status:          d.Status,
		})
	}
	// Utilization replays against the tenant's current active fleet, so an
	// idle machine drags the rate down. Machines retired since the run fall
	// back to the ones recorded in it.
	machineCount := len(active)
	if machineCount == 0 {
		machineCount = len(machineSet)
	}
	metrics := summarizeRun(jobs, machineCount)

	return &dto.GenerateScheduleResponse{
		ScheduleID: scheduleID,
		Schedules:  entries,
		Metrics: dto.ScheduleMetricsResponse{
			OnTimeRate:   metrics.OnTimeRate,
			Utilization:  metrics.Utilization,
			TotalOrders:  metrics.TotalOrders,
			OnTimeOrders: metrics.OnTimeOrders,
			LateOrders:   metrics.LateOrders,
		},
	}, nil
}

// Gantt groups a stored run into per-machine task lists ordered by start.
func (s *ScheduleService) Gantt(ctx context.Context, userID, scheduleID string) ([]dto.GanttMachine, error) {
	details, _, err := s.loadRun(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}

	byMachine := make(map[string][]dto.GanttTask)
	machineOrder := make([]string, 0)
	for _, d := range details {
		if _, seen := byMachine[d.MachineID]; !seen {
			machineOrder = append(machineOrder, d.MachineID)
		}
		byMachine[d.MachineID] = append(byMachine[d.MachineID], dto.GanttTask{
			OrderNumber:     d.OrderNumber,
			ProductCode:     d.ProductCode,
			Start:           d.StartTime.Format(time.RFC3339),
			End:             d.EndTime.Format(time.RFC3339),
			DurationMinutes: d.DurationMinutes,
			IsOnTime:        d.IsOnTime,
			Status:          d.Status,
		})
	}

	result := make([]dto.GanttMachine, 0, len(machineOrder))
	for _, machineID := range machineOrder {
		result = append(result, dto.GanttMachine{MachineID: machineID, Tasks: byMachine[machineID]})
	}
	return result, nil
}

// ExportCSV renders a stored run as a CSV document.
func (s *ScheduleService) ExportCSV(ctx context.Context, userID, scheduleID string) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	data, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
	}
	return data, nil
}

// ExportPDF renders a stored run as a tabular PDF report.
func (s *ScheduleService) ExportPDF(ctx context.Context, userID, scheduleID string) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, userID, scheduleID)
	if err != nil {
		return nil, err
	}
	data, err := export.NewPDFExporter().Render(dataset, "Production Schedule")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
	}
	return data, nil
}

var scheduleExportHeaders = []string{"order_number", "product_code", "machine_id", "start_time", "end_time", "duration_minutes", "on_time", "status"}

func (s *ScheduleService) exportDataset(ctx context.Context, userID, scheduleID string) (export.Dataset, error) {
	details, _, err := s.loadRun(ctx, userID, scheduleID)
	if err != nil {
		return export.Dataset{}, err
	}
	if len(details) == 0 {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrNotFound, "no schedule found to export")
	}

	rows := make([]map[string]string, 0, len(details))
	for _, d := range details {
		onTime := "late"
		if d.IsOnTime {
			onTime = "on_time"
		}
		rows = append(rows, map[string]string{
			"order_number":     d.OrderNumber,
			"product_code":     d.ProductCode,
			"machine_id":       d.MachineID,
			"start_time":       d.StartTime.Format(time.RFC3339),
			"end_time":         d.EndTime.Format(time.RFC3339),
			"duration_minutes": formatInt(d.DurationMinutes),
			"on_time":          onTime,
			"status":           d.Status,
		})
	}
	return export.Dataset{Headers: scheduleExportHeaders, Rows: rows}, nil
}

func (s *ScheduleService) loadRun(ctx context.Context, userID, scheduleID string) ([]models.ScheduleDetail, string, error) {
	if scheduleID == "" {
		latest, err := s.schedules.LatestScheduleID(ctx, userID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, "", nil
			}
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve latest schedule")
		}
		scheduleID = latest
	}
	details, err := s.schedules.ListByScheduleID(ctx, userID, scheduleID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}
	return details, scheduleID, nil
}

func buildGenerateResponse(run ScheduleRun) *dto.GenerateScheduleResponse {
	entries := make([]dto.ScheduleEntryResponse, 0, len(run.Jobs))
	for _, job := range run.Jobs {
		entries = append(entries, dto.ScheduleEntryResponse{
			OrderNumber:     job.OrderNumber,
			ProductCode:     job.ProductCode,
			MachineID:       job.MachineID,
			StartTime:       job.StartTime.Format(time.RFC3339),
			EndTime:         job.EndTime.Format(time.RFC3339),
			DurationMinutes: job.DurationMinutes,
			IsOnTime:        job.IsOnTime,
			DueDate:         job.DueDate.Format("2006-01-02"),
			Quantity:        job.Quantity,
		})
	}
	return &dto.GenerateScheduleResponse{
		ScheduleID: run.ScheduleID,
		Schedules:  entries,
		Metrics: dto.ScheduleMetricsResponse{
			OnTimeRate:   run.Metrics.OnTimeRate,
			Utilization:  run.Metrics.Utilization,
			TotalOrders:  run.Metrics.TotalOrders,
			OnTimeOrders: run.Metrics.OnTimeOrders,
			LateOrders:   run.Metrics.LateOrders,
		},
		SkippedOrders: run.SkippedOrders,
		GeneratedAt:   run.GeneratedAt.Format(time.RFC3339),
	}
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
