package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

const (
	defaultLeadTimeDays = 7
	defaultServiceLevel = 0.95
	orderCycleDays      = 30
)

type inventoryRepository interface {
	List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Inventory, int, error)
	ListByUser(ctx context.Context, userID string) ([]models.Inventory, error)
	FindByCode(ctx context.Context, userID, productCode string) (*models.Inventory, error)
	Create(ctx context.Context, item *models.Inventory) error
	Update(ctx context.Context, item *models.Inventory) error
	Delete(ctx context.Context, userID, id string) error
	UpsertPolicy(ctx context.Context, policy *models.InventoryPolicy) error
	FindPolicy(ctx context.Context, userID, productCode string) (*models.InventoryPolicy, error)
	ListPolicies(ctx context.Context, userID string) ([]models.InventoryPolicy, error)
}

type demandForecastReader interface {
	ListRange(ctx context.Context, userID, productCode string, from, to time.Time) ([]models.Forecast, error)
	SumRange(ctx context.Context, userID, productCode string, from, to time.Time) (int, error)
}

// InventoryService manages stock records and forecast-driven reorder policies.
type InventoryService struct {
	repo      inventoryRepository
	forecasts demandForecastReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(repo inventoryRepository, forecasts demandForecastReader, validate *validator.Validate, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InventoryService{repo: repo, forecasts: forecasts, validator: validate, logger: logger, now: time.Now}
}

// List returns stock items with forecast-derived risk annotations.
func (s *InventoryService) List(ctx context.Context, userID, search string, page, pageSize int) ([]dto.InventoryItemResponse, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, userID, search, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inventory")
	}

	items := make([]dto.InventoryItemResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.annotate(ctx, userID, row))
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get fetches one stock item with its risk annotation.
func (s *InventoryService) Get(ctx context.Context, userID, productCode string) (*dto.InventoryItemResponse, error) {
	item, err := s.repo.FindByCode(ctx, userID, productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}
	annotated := s.annotate(ctx, userID, *item)
	return &annotated, nil
}

// Create registers stock for a product.
func (s *InventoryService) Create(ctx context.Context, userID string, req dto.CreateInventoryRequest) (*models.Inventory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload")
	}

	if _, err := s.repo.FindByCode(ctx, userID, req.ProductCode); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "inventory for product already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check inventory")
	}

	item := &models.Inventory{
		UserID:       userID,
		ProductCode:  req.ProductCode,
		ProductName:  req.ProductName,
		CurrentStock: req.CurrentStock,
		Unit:         req.Unit,
		Location:     req.Location,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		UnitCost:     req.UnitCost,
	}
	if item.Unit == "" {
		item.Unit = "ea"
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create inventory item")
	}
	return item, nil
}

// Update patches a stock record.
func (s *InventoryService) Update(ctx context.Context, userID, productCode string, req dto.UpdateInventoryRequest) (*models.Inventory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inventory payload")
	}

	item, err := s.repo.FindByCode(ctx, userID, productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}

	if req.ProductName != nil {
		item.ProductName = *req.ProductName
	}
	if req.CurrentStock != nil {
		item.CurrentStock = *req.CurrentStock
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.Location != nil {
		item.Location = req.Location
	}
	if req.MinStock != nil {
		item.MinStock = *req.MinStock
	}
	if req.MaxStock != nil {
		item.MaxStock = req.MaxStock
	}
	if req.UnitCost != nil {
		item.UnitCost = req.UnitCost
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update inventory item")
	}
	return item, nil
}

// Delete removes a stock record.
func (s *InventoryService) Delete(ctx context.Context, userID, productCode string) error {
	item, err := s.repo.FindByCode(ctx, userID, productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}
	if err := s.repo.Delete(ctx, userID, item.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete inventory item")
	}
	return nil
}

// CalculatePolicy derives reorder parameters from the stored demand forecasts
// and persists them.
func (s *InventoryService) CalculatePolicy(ctx context.Context, userID string, req dto.CalculatePolicyRequest) (*dto.PolicyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid policy payload")
	}

	leadTime := req.LeadTimeDays
	if leadTime <= 0 {
		leadTime = defaultLeadTimeDays
	}
	serviceLevel := req.ServiceLevel
	if serviceLevel == 0 {
		serviceLevel = defaultServiceLevel
	}

	today := s.today()
	forecasts, err := s.forecasts.ListRange(ctx, userID, req.ProductCode, today, today.AddDate(0, 0, orderCycleDays))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load forecasts")
	}
	if len(forecasts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no demand forecasts available; run a forecast first")
	}

	mean, stddev := demandStats(forecasts)
	z := zScore(serviceLevel)

	safetyStock := int(math.Ceil(z * stddev * math.Sqrt(float64(leadTime))))
	reorderPoint := int(math.Ceil(mean*float64(leadTime))) + safetyStock
	recommendedQty := int(math.Ceil(mean * orderCycleDays))

	policy := &models.InventoryPolicy{
		UserID:              userID,
		ProductCode:         req.ProductCode,
		SafetyStock:         safetyStock,
		ReorderPoint:        reorderPoint,
		RecommendedOrderQty: recommendedQty,
		LeadTimeDays:        leadTime,
		ServiceLevel:        serviceLevel,
	}
	if err := s.repo.UpsertPolicy(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store policy")
	}

	s.logger.Info("inventory policy calculated",
		zap.String("user_id", userID),
		zap.String("product_code", req.ProductCode),
		zap.Int("safety_stock", safetyStock),
		zap.Int("reorder_point", reorderPoint))

	return &dto.PolicyResponse{
		ProductCode:         req.ProductCode,
		SafetyStock:         safetyStock,
		ReorderPoint:        reorderPoint,
		RecommendedOrderQty: recommendedQty,
		LeadTimeDays:        leadTime,
		ServiceLevel:        serviceLevel,
		AvgDailyDemand:      int(math.Round(mean)),
		StdDeviation:        int(math.Round(stddev)),
	}, nil
}

// StockStatus compares current stock against the stored policy.
func (s *InventoryService) StockStatus(ctx context.Context, userID, productCode string) (*dto.StockStatusResponse, error) {
	item, err := s.repo.FindByCode(ctx, userID, productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inventory item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
	}

	policy, err := s.repo.FindPolicy(ctx, userID, productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no policy stored; calculate one first")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load policy")
	}

	status := models.InventoryStatusNormal
	switch {
	case item.CurrentStock < policy.SafetyStock:
		status = models.InventoryStatusUrgent
	case item.CurrentStock < policy.ReorderPoint:
		status = models.InventoryStatusReorder
	}

	return &dto.StockStatusResponse{
		ProductCode:         productCode,
		CurrentStock:        item.CurrentStock,
		SafetyStock:         policy.SafetyStock,
		ReorderPoint:        policy.ReorderPoint,
		RecommendedOrderQty: policy.RecommendedOrderQty,
		Status:              status,
	}, nil
}

// Alerts lists products whose stock fell below policy thresholds.
func (s *InventoryService) Alerts(ctx context.Context, userID string) ([]dto.InventoryAlert, error) {
	policies, err := s.repo.ListPolicies(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load policies")
	}

	alerts := []dto.InventoryAlert{}
	for _, policy := range policies {
		item, err := s.repo.FindByCode(ctx, userID, policy.ProductCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory item")
		}
		switch {
		case item.CurrentStock < policy.SafetyStock:
			alerts = append(alerts, dto.InventoryAlert{
				ProductCode: policy.ProductCode,
				Level:       models.InventoryStatusUrgent,
				Message:     fmt.Sprintf("stock %d below safety stock %d", item.CurrentStock, policy.SafetyStock),
			})
		case item.CurrentStock < policy.ReorderPoint:
			alerts = append(alerts, dto.InventoryAlert{
				ProductCode: policy.ProductCode,
				Level:       models.InventoryStatusReorder,
				Message:     fmt.Sprintf("stock %d below reorder point %d", item.CurrentStock, policy.ReorderPoint),
			})
		}
	}
	return alerts, nil
}

// annotate classifies stock risk by days of cover against the next week's
// forecast demand. Items without forecast data fall back to min_stock checks.
func (s *InventoryService) annotate(ctx context.Context, userID string, item models.Inventory) dto.InventoryItemResponse {
	resp := dto.InventoryItemResponse{
		ID:           item.ID,
		ProductCode:  item.ProductCode,
		ProductName:  item.ProductName,
		CurrentStock: item.CurrentStock,
		Unit:         item.Unit,
		Location:     item.Location,
		MinStock:     item.MinStock,
		MaxStock:     item.MaxStock,
		UnitCost:     item.UnitCost,
		Status:       models.InventoryStatusNormal,
	}

	today := s.today()
	weekDemand, err := s.forecasts.SumRange(ctx, userID, item.ProductCode, today, today.AddDate(0, 0, 7))
	if err != nil {
		s.logger.Warn("failed to sum forecast demand", zap.String("product_code", item.ProductCode), zap.Error(err))
	}
	resp.WeekDemand = weekDemand

	if weekDemand > 0 {
		daysLeft := float64(item.CurrentStock) / (float64(weekDemand) / 7)
		daysLeft = math.Round(daysLeft*10) / 10
		resp.DaysLeft = &daysLeft
		switch {
		case daysLeft < 3:
			resp.Status = models.InventoryStatusUrgent
		case daysLeft < 7:
			resp.Status = models.InventoryStatusWarning
		case daysLeft > 30:
			resp.Status = models.InventoryStatusExcess
		}
		return resp
	}

	if item.MinStock > 0 && item.CurrentStock < item.MinStock {
		resp.Status = models.InventoryStatusWarning
	}
	return resp
}

func (s *InventoryService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func demandStats(forecasts []models.Forecast) (mean, stddev float64) {
	var sum float64
	for _, f := range forecasts {
		sum += float64(f.PredictedDemand)
	}
	mean = sum / float64(len(forecasts))

	var variance float64
	for _, f := range forecasts {
		diff := float64(f.PredictedDemand) - mean
		variance += diff * diff
	}
	variance /= float64(len(forecasts))
	return mean, math.Sqrt(variance)
}

// zScore maps a service level to its one-sided normal quantile. Only the two
// levels the UI offers are distinguished.
func zScore(serviceLevel float64) float64 {
	if serviceLevel <= 0.95 {
		return 1.65
	}
	return 1.96
}
