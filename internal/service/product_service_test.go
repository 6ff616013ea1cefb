package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

type productRepoStub struct {
	byCode  map[string]*models.Product
	deleted []string
}

func newProductRepoStub() *productRepoStub {
	return &productRepoStub{byCode: map[string]*models.Product{}}
}

func (s *productRepoStub) List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Product, int, error) {
	rows := make([]models.Product, 0, len(s.byCode))
	for _, p := range s.byCode {
		rows = append(rows, *p)
	}
	return rows, len(rows), nil
}

func (s *productRepoStub) FindByCode(ctx context.Context, userID, productCode string) (*models.Product, error) {
	p, ok := s.byCode[productCode]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (s *productRepoStub) ExistsByCode(ctx context.Context, userID, productCode, excludeID string) (bool, error) {
	p, ok := s.byCode[productCode]
	if !ok {
		return false, nil
	}
	return p.ID != excludeID, nil
}

func (s *productRepoStub) Create(ctx context.Context, product *models.Product) error {
	product.ID = "prod-" + product.ProductCode
	s.byCode[product.ProductCode] = product
	return nil
}

func (s *productRepoStub) Update(ctx context.Context, product *models.Product) error {
	if _, ok := s.byCode[product.ProductCode]; !ok {
		return sql.ErrNoRows
	}
	s.byCode[product.ProductCode] = product
	return nil
}

func (s *productRepoStub) Delete(ctx context.Context, userID, id string) error {
	for code, p := range s.byCode {
		if p.ID == id {
			delete(s.byCode, code)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func TestProductServiceCreateDefaultsCavityCount(t *testing.T) {
	repo := newProductRepoStub()
	svc := NewProductService(repo, nil, nil)

	product, err := svc.Create(context.Background(), "user-1", dto.CreateProductRequest{
		ProductCode:      "P-100",
		ProductName:      "Bottle cap 28mm",
		CycleTimeSeconds: floatPtr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", product.UserID)
	assert.Equal(t, 1, product.CavityCount)
	assert.Equal(t, "prod-P-100", product.ID)
}

func TestProductServiceCreateDuplicateCode(t *testing.T) {
	repo := newProductRepoStub()
	svc := NewProductService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateProductRequest{
		ProductCode: "P-100",
		ProductName: "Bottle cap 28mm",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "user-1", dto.CreateProductRequest{
		ProductCode: "P-100",
		ProductName: "Bottle cap 30mm",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestProductServiceCreateValidation(t *testing.T) {
	svc := NewProductService(newProductRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateProductRequest{ProductCode: "P-100"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProductServiceUpdatePatchesFields(t *testing.T) {
	repo := newProductRepoStub()
	svc := NewProductService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateProductRequest{
		ProductCode: "P-200",
		ProductName: "Gear housing",
		CavityCount: 4,
		MinStock:    50,
	})
	require.NoError(t, err)

	name := "Gear housing v2"
	tonnage := 180
	updated, err := svc.Update(context.Background(), "user-1", "P-200", dto.UpdateProductRequest{
		ProductName:     &name,
		RequiredTonnage: &tonnage,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gear housing v2", updated.ProductName)
	require.NotNil(t, updated.RequiredTonnage)
	assert.Equal(t, 180, *updated.RequiredTonnage)
	assert.Equal(t, 4, updated.CavityCount)
	assert.Equal(t, 50, updated.MinStock)

	zero := 0
	_, err = svc.Update(context.Background(), "user-1", "P-200", dto.UpdateProductRequest{CavityCount: &zero})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProductServiceGetNotFound(t *testing.T) {
	svc := NewProductService(newProductRepoStub(), nil, nil)

	_, err := svc.Get(context.Background(), "user-1", "P-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProductServiceDelete(t *testing.T) {
	repo := newProductRepoStub()
	svc := NewProductService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateProductRequest{
		ProductCode: "P-300",
		ProductName: "Clip",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "P-300"))
	assert.Equal(t, []string{"prod-P-300"}, repo.deleted)

	err = svc.Delete(context.Background(), "user-1", "P-300")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
