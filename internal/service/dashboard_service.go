package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

type dashboardOrderReader interface {
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
	ListOverduePending(ctx context.Context, userID string, asOf time.Time) ([]models.Order, error)
}

type dashboardEquipmentReader interface {
	CountActive(ctx context.Context, userID string) (int, error)
}

type dashboardScheduleReader interface {
	ListForWindow(ctx context.Context, userID string, from, to time.Time) ([]models.ScheduleDetail, error)
	CountForWindow(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// DashboardService aggregates operational summaries for the landing view.
type DashboardService struct {
	orders    dashboardOrderReader
	equipment dashboardEquipmentReader
	schedules dashboardScheduleReader
	cache     *CacheService
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(orders dashboardOrderReader, equipment dashboardEquipmentReader, schedules dashboardScheduleReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		orders:    orders,
		equipment: equipment,
		schedules: schedules,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Summary returns the cached operational summary, rebuilding it on a miss.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*dto.DashboardSummary, error) {
	cacheKey := fmt.Sprintf("dashboard:summary:%s", userID)
	var cached dto.DashboardSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	now := s.now().UTC()
	counts, err := s.orders.CountByStatus(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count orders")
	}

	overdue, err := s.orders.ListOverduePending(ctx, userID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue orders")
	}

	activeEquipment, err := s.equipment.CountActive(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count equipment")
	}

	dayStart, dayEnd := dayBounds(now)
	todayJobs, err := s.schedules.CountForWindow(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count today's jobs")
	}

	summary := &dto.DashboardSummary{
		PendingOrders:   counts[models.OrderStatusPending],
		ScheduledOrders: counts[models.OrderStatusScheduled],
		CompletedOrders: counts[models.OrderStatusCompleted],
		CancelledOrders: counts[models.OrderStatusCancelled],
		OverdueOrders:   len(overdue),
		ActiveEquipment: activeEquipment,
		TodayJobs:       todayJobs,
		GeneratedAt:     now.Format(time.RFC3339),
	}

	if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, nil
}

// ProductionProgress reports completion of today's scheduled jobs. Progress is
// 0 before the window, 100 after it, and elapsed time within it otherwise.
func (s *DashboardService) ProductionProgress(ctx context.Context, userID string) ([]dto.ProductionProgressEntry, error) {
	now := s.now().UTC()
	dayStart, dayEnd := dayBounds(now)

	jobs, err := s.schedules.ListForWindow(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's jobs")
	}

	entries := make([]dto.ProductionProgressEntry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, dto.ProductionProgressEntry{
			OrderNumber:     job.OrderNumber,
			ProductCode:     job.ProductCode,
			MachineID:       job.MachineID,
			StartTime:       job.StartTime.Format(time.RFC3339),
			EndTime:         job.EndTime.Format(time.RFC3339),
			ProgressPercent: progressPercent(now, job.StartTime, job.EndTime),
			Status:          job.Status,
		})
	}
	return entries, nil
}

// Alerts lists conditions needing attention, currently overdue pending orders.
func (s *DashboardService) Alerts(ctx context.Context, userID string) ([]dto.DashboardAlert, error) {
	now := s.now().UTC()
	overdue, err := s.orders.ListOverduePending(ctx, userID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue orders")
	}

	alerts := make([]dto.DashboardAlert, 0, len(overdue))
	for _, order := range overdue {
		alerts = append(alerts, dto.DashboardAlert{
			Level:       "warning",
			Message:     fmt.Sprintf("order %s is past its due date and still pending", order.OrderNumber),
			OrderNumber: order.OrderNumber,
			DueDate:     order.DueDate.Format(dueDateLayout),
		})
	}
	return alerts, nil
}

// InvalidateSummary clears the cached summary after a data change.
func (s *DashboardService) InvalidateSummary(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:summary:%s", userID)); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

func progressPercent(now, start, end time.Time) float64 {
	switch {
	case !now.After(start):
		return 0
	case !now.Before(end):
		return 100
	}
	total := end.Sub(start).Minutes()
	if total <= 0 {
		return 100
	}
	pct := now.Sub(start).Minutes() / total * 100
	return math.Round(pct*10) / 10
}
