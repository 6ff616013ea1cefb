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

type productRepository interface {
	List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Product, int, error)
	FindByCode(ctx context.Context, userID, productCode string) (*models.Product, error)
	ExistsByCode(ctx context.Context, userID, productCode, excludeID string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, userID, id string) error
}

// ProductService manages product master data.
type ProductService struct {
	repo      productRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProductService constructs a ProductService.
func NewProductService(repo productRepository, validate *validator.Validate, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProductService{repo: repo, validator: validate, logger: logger}
}

// List returns products matching the search with pagination metadata.
func (s *ProductService) List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Product, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, userID, search, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get fetches one product by code.
func (s *ProductService) Get(ctx context.Context, userID, productCode string) (*models.Product, error) {
	product, err := s.repo.FindByCode(ctx, userID, productCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	return product, nil
}

// Create registers new product master data.
func (s *ProductService) Create(ctx context.Context, userID string, req dto.CreateProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}

	exists, err := s.repo.ExistsByCode(ctx, userID, req.ProductCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check product code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "product_code already exists")
	}

	product := &models.Product{
		UserID:           userID,
		ProductCode:      req.ProductCode,
		ProductName:      req.ProductName,
		UnitPrice:        req.UnitPrice,
		UnitCost:         req.UnitCost,
		RequiredTonnage:  req.RequiredTonnage,
		CycleTimeSeconds: req.CycleTimeSeconds,
		CavityCount:      req.CavityCount,
		MinStock:         req.MinStock,
	}
	if product.CavityCount < 1 {
		product.CavityCount = 1
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create product")
	}

	s.logger.Info("product created", zap.String("user_id", userID), zap.String("product_code", product.ProductCode))
	return product, nil
}

// Update patches product master data.
func (s *ProductService) Update(ctx context.Context, userID, productCode string, req dto.UpdateProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}

	product, err := s.Get(ctx, userID, productCode)
	if err != nil {
		return nil, err
	}

	if req.ProductName != nil {
		product.ProductName = *req.ProductName
	}
	if req.UnitPrice != nil {
		product.UnitPrice = req.UnitPrice
	}
	if req.UnitCost != nil {
		product.UnitCost = req.UnitCost
	}
	if req.RequiredTonnage != nil {
		product.RequiredTonnage = req.RequiredTonnage
	}
	if req.CycleTimeSeconds != nil {
		product.CycleTimeSeconds = req.CycleTimeSeconds
	}
	if req.CavityCount != nil && *req.CavityCount >= 1 {
		product.CavityCount = *req.CavityCount
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update product")
	}
	return product, nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, userID, productCode string) error {
	product, err := s.Get(ctx, userID, productCode)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, product.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete product")
	}
	s.logger.Info("product deleted", zap.String("user_id", userID), zap.String("product_code", productCode))
	return nil
}
