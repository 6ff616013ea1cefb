package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

type equipmentRepository interface {
	List(ctx context.Context, userID string, filter models.EquipmentFilter) ([]models.Equipment, int, error)
	FindByID(ctx context.Context, userID, id string) (*models.Equipment, error)
	ExistsByMachineID(ctx context.Context, userID, machineID, excludeID string) (bool, error)
	Create(ctx context.Context, eq *models.Equipment) error
	Update(ctx context.Context, eq *models.Equipment) error
	Delete(ctx context.Context, userID, id string) error
}

// EquipmentService manages the tenant's machine registry.
type EquipmentService struct {
	repo      equipmentRepository
	summaries summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEquipmentService constructs an EquipmentService.
func NewEquipmentService(repo equipmentRepository, summaries summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *EquipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EquipmentService{repo: repo, summaries: summaries, validator: validate, logger: logger}
}

func (s *EquipmentService) invalidateSummary(ctx context.Context, userID string) {
	if s.summaries != nil {
		s.summaries.InvalidateSummary(ctx, userID)
	}
}

// List returns machines matching the filter with pagination metadata.
func (s *EquipmentService) List(ctx context.Context, userID string, filter models.EquipmentFilter) ([]models.Equipment, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list equipment")
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

// Get fetches one machine.
func (s *EquipmentService) Get(ctx context.Context, userID, id string) (*models.Equipment, error) {
	eq, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load equipment")
	}
	return eq, nil
}

// Create registers a new machine. Shift times default to the standard
// 08:00-18:00 window when omitted.
func (s *EquipmentService) Create(ctx context.Context, userID string, req dto.CreateEquipmentRequest) (*models.Equipment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equipment payload")
	}

	exists, err := s.repo.ExistsByMachineID(ctx, userID, req.MachineID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check machine id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "machine_id already registered")
	}

	eq := &models.Equipment{
		UserID:          userID,
		MachineID:       req.MachineID,
		MachineName:     req.MachineName,
		Tonnage:         req.Tonnage,
		CapacityPerHour: req.CapacityPerHour,
		ShiftStart:      req.ShiftStart,
		ShiftEnd:        req.ShiftEnd,
		Status:          req.Status,
	}
	if eq.ShiftStart == "" {
		eq.ShiftStart = defaultShiftStart
	}
	if eq.ShiftEnd == "" {
		eq.ShiftEnd = defaultShiftEnd
	}
	if eq.Status == "" {
		eq.Status = models.EquipmentStatusActive
	}
	if _, err := parseShiftWindow(eq.ShiftStart, eq.ShiftEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift window")
	}

	if err := s.repo.Create(ctx, eq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create equipment")
	}

	s.logger.Info("equipment registered", zap.String("user_id", userID), zap.String("machine_id", eq.MachineID))
	s.invalidateSummary(ctx, userID)
	return eq, nil
}

// Update patches a machine.
func (s *EquipmentService) Update(ctx context.Context, userID, id string, req dto.UpdateEquipmentRequest) (*models.Equipment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid equipment payload")
	}

	eq, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.MachineName != nil {
		eq.MachineName = *req.MachineName
	}
	if req.Tonnage != nil {
		eq.Tonnage = *req.Tonnage
	}
	if req.CapacityPerHour != nil {
		eq.CapacityPerHour = *req.CapacityPerHour
	}
	if req.ShiftStart != nil {
		eq.ShiftStart = *req.ShiftStart
	}
	if req.ShiftEnd != nil {
		eq.ShiftEnd = *req.ShiftEnd
	}
	if req.Status != nil {
		eq.Status = *req.Status
	}
	if _, err := parseShiftWindow(eq.ShiftStart, eq.ShiftEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift window")
	}

	if err := s.repo.Update(ctx, eq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update equipment")
	}
	s.invalidateSummary(ctx, userID)
	return eq, nil
}

// Delete removes a machine from the registry.
func (s *EquipmentService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "equipment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete equipment")
	}
	s.logger.Info("equipment deleted", zap.String("user_id", userID), zap.String("id", id))
	s.invalidateSummary(ctx, userID)
	return nil
}
