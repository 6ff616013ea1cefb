package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

const dueDateLayout = "2006-01-02"

type orderRepository interface {
	List(ctx context.Context, userID string, filter models.OrderFilter) ([]models.Order, int, error)
	FindByID(ctx context.Context, userID, id string) (*models.Order, error)
	ExistsByOrderNumber(ctx context.Context, userID, orderNumber, excludeID string) (bool, error)
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, userID, id string) error
}

// summaryInvalidator drops cached dashboard aggregates after a data change.
type summaryInvalidator interface {
	InvalidateSummary(ctx context.Context, userID string)
}

// OrderService manages production orders.
type OrderService struct {
	repo      orderRepository
	summaries summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOrderService constructs an OrderService.
func NewOrderService(repo orderRepository, summaries summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OrderService{repo: repo, summaries: summaries, validator: validate, logger: logger}
}

func (s *OrderService) invalidateSummary(ctx context.Context, userID string) {
	if s.summaries != nil {
		s.summaries.InvalidateSummary(ctx, userID)
	}
}

// List returns orders matching the filter with pagination metadata.
func (s *OrderService) List(ctx context.Context, userID string, filter models.OrderFilter) ([]models.Order, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orders")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one order.
func (s *OrderService) Get(ctx context.Context, userID, id string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order")
	}
	return order, nil
}

// Create places a new production order.
func (s *OrderService) Create(ctx context.Context, userID string, req dto.CreateOrderRequest) (*models.Order, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order payload")
	}

	exists, err := s.repo.ExistsByOrderNumber(ctx, userID, req.OrderNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check order number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "order_number already exists")
	}

	dueDate, err := time.ParseInLocation(dueDateLayout, req.DueDate, time.UTC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid due_date")
	}

	order := &models.Order{
		UserID:      userID,
		OrderNumber: req.OrderNumber,
		ProductCode: req.ProductCode,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		DueDate:     dueDate,
		Priority:    req.Priority,
		Status:      models.OrderStatusPending,
		IsUrgent:    req.IsUrgent,
		Notes:       req.Notes,
	}
	if order.Priority == 0 {
		order.Priority = models.PriorityLowest
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create order")
	}

	s.logger.Info("order created", zap.String("user_id", userID), zap.String("order_number", order.OrderNumber))
	s.invalidateSummary(ctx, userID)
	return order, nil
}

// CreateUrgent registers an order at the top priority tier. The requested
// priority and urgency flags are overridden.
func (s *OrderService) CreateUrgent(ctx context.Context, userID string, req dto.CreateOrderRequest) (*models.Order, error) {
	req.IsUrgent = true
	req.Priority = models.PriorityHighest
	return s.Create(ctx, userID, req)
}

// Update patches an order. Scheduled orders may only change status and notes;
// rescheduling requires a new run.
func (s *OrderService) Update(ctx context.Context, userID, id string, req dto.UpdateOrderRequest) (*models.Order, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order payload")
	}

	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	planChanged := req.Quantity != nil || req.DueDate != nil || req.Priority != nil
	if order.Status == models.OrderStatusScheduled && planChanged {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "order is already scheduled; cancel or complete it first")
	}

	if req.ProductName != nil {
		order.ProductName = *req.ProductName
	}
	if req.Quantity != nil {
		order.Quantity = *req.Quantity
	}
	if req.DueDate != nil {
		dueDate, err := time.ParseInLocation(dueDateLayout, *req.DueDate, time.UTC)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid due_date")
		}
		order.DueDate = dueDate
	}
	if req.Priority != nil {
		order.Priority = *req.Priority
	}
	if req.Status != nil {
		order.Status = *req.Status
	}
	if req.IsUrgent != nil {
		order.IsUrgent = *req.IsUrgent
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update order")
	}
	s.invalidateSummary(ctx, userID)
	return order, nil
}

// Delete removes an order.
func (s *OrderService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "order not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete order")
	}
	s.logger.Info("order deleted", zap.String("user_id", userID), zap.String("id", id))
	s.invalidateSummary(ctx, userID)
	return nil
}
