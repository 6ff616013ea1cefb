package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

type inventoryRepoStub struct {
	items    map[string]*models.Inventory
	policies map[string]*models.InventoryPolicy
	upserted *models.InventoryPolicy
}

func newInventoryRepoStub() *inventoryRepoStub {
	return &inventoryRepoStub{
		items:    make(map[string]*models.Inventory),
		policies: make(map[string]*models.InventoryPolicy),
	}
}

func (s *inventoryRepoStub) List(ctx context.Context, userID, search string, page, pageSize int) ([]models.Inventory, int, error) {
	rows := make([]models.Inventory, 0, len(s.items))
	for _, item := range s.items {
		rows = append(rows, *item)
	}
	return rows, len(rows), nil
}

func (s *inventoryRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Inventory, error) {
	rows, _, err := s.List(ctx, userID, "", 1, 100)
	return rows, err
}

func (s *inventoryRepoStub) FindByCode(ctx context.Context, userID, productCode string) (*models.Inventory, error) {
	if item, ok := s.items[productCode]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (s *inventoryRepoStub) Create(ctx context.Context, item *models.Inventory) error {
	s.items[item.ProductCode] = item
	return nil
}

func (s *inventoryRepoStub) Update(ctx context.Context, item *models.Inventory) error {
	if _, ok := s.items[item.ProductCode]; !ok {
		return sql.ErrNoRows
	}
	s.items[item.ProductCode] = item
	return nil
}

func (s *inventoryRepoStub) Delete(ctx context.Context, userID, id string) error {
	for code, item := range s.items {
		if item.ID == id {
			delete(s.items, code)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *inventoryRepoStub) UpsertPolicy(ctx context.Context, policy *models.InventoryPolicy) error {
	s.upserted = policy
	s.policies[policy.ProductCode] = policy
	return nil
}

func (s *inventoryRepoStub) FindPolicy(ctx context.Context, userID, productCode string) (*models.InventoryPolicy, error) {
	if policy, ok := s.policies[productCode]; ok {
		return policy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *inventoryRepoStub) ListPolicies(ctx context.Context, userID string) ([]models.InventoryPolicy, error) {
	rows := make([]models.InventoryPolicy, 0, len(s.policies))
	for _, policy := range s.policies {
		rows = append(rows, *policy)
	}
	return rows, nil
}

type forecastReaderStub struct {
	forecasts []models.Forecast
	weekSum   int
}

func (s *forecastReaderStub) ListRange(ctx context.Context, userID, productCode string, from, to time.Time) ([]models.Forecast, error) {
	return s.forecasts, nil
}

func (s *forecastReaderStub) SumRange(ctx context.Context, userID, productCode string, from, to time.Time) (int, error) {
	return s.weekSum, nil
}

func flatForecasts(demand, days int) []models.Forecast {
	rows := make([]models.Forecast, 0, days)
	for i := 0; i < days; i++ {
		rows = append(rows, models.Forecast{PredictedDemand: demand})
	}
	return rows
}

func newInventoryService(repo *inventoryRepoStub, forecasts *forecastReaderStub) *InventoryService {
	svc := NewInventoryService(repo, forecasts, nil, nil)
	svc.now = func() time.Time { return schedulerNow }
	return svc
}

func TestInventoryPolicyFlatDemand(t *testing.T) {
	repo := newInventoryRepoStub()
	svc := newInventoryService(repo, &forecastReaderStub{forecasts: flatForecasts(10, 30)})

	policy, err := svc.CalculatePolicy(context.Background(), "user-1", dto.CalculatePolicyRequest{ProductCode: "P-100"})
	require.NoError(t, err)

	// Constant demand has zero deviation, so safety stock vanishes and the
	// reorder point is plain lead-time demand.
	assert.Equal(t, 0, policy.SafetyStock)
	assert.Equal(t, 70, policy.ReorderPoint)
	assert.Equal(t, 300, policy.RecommendedOrderQty)
	assert.Equal(t, defaultLeadTimeDays, policy.LeadTimeDays)
	assert.Equal(t, defaultServiceLevel, policy.ServiceLevel)
	assert.Equal(t, 10, policy.AvgDailyDemand)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, "P-100", repo.upserted.ProductCode)
}

func TestInventoryPolicyVariableDemand(t *testing.T) {
	forecasts := make([]models.Forecast, 0, 30)
	for i := 0; i < 30; i++ {
		demand := 8
		if i%2 == 1 {
			demand = 12
		}
		forecasts = append(forecasts, models.Forecast{PredictedDemand: demand})
	}
	svc := newInventoryService(newInventoryRepoStub(), &forecastReaderStub{forecasts: forecasts})

	policy, err := svc.CalculatePolicy(context.Background(), "user-1", dto.CalculatePolicyRequest{ProductCode: "P-100"})
	require.NoError(t, err)

	// mean 10, stddev 2, z 1.65, sqrt(7) lead time factor.
	assert.Equal(t, 9, policy.SafetyStock)
	assert.Equal(t, 79, policy.ReorderPoint)
	assert.Equal(t, 300, policy.RecommendedOrderQty)
	assert.Equal(t, 2, policy.StdDeviation)
}

func TestInventoryPolicyHigherServiceLevel(t *testing.T) {
	forecasts := make([]models.Forecast, 0, 30)
	for i := 0; i < 30; i++ {
		demand := 8
		if i%2 == 1 {
			demand = 12
		}
		forecasts = append(forecasts, models.Forecast{PredictedDemand: demand})
	}
	svc := newInventoryService(newInventoryRepoStub(), &forecastReaderStub{forecasts: forecasts})

	policy, err := svc.CalculatePolicy(context.Background(), "user-1", dto.CalculatePolicyRequest{
		ProductCode:  "P-100",
		ServiceLevel: 0.99,
	})
	require.NoError(t, err)
	// z jumps to 1.96 above the 95% level.
	assert.Equal(t, 11, policy.SafetyStock)
}

func TestInventoryPolicyWithoutForecasts(t *testing.T) {
	svc := newInventoryService(newInventoryRepoStub(), &forecastReaderStub{})

	_, err := svc.CalculatePolicy(context.Background(), "user-1", dto.CalculatePolicyRequest{ProductCode: "P-100"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestInventoryAnnotateRiskLevels(t *testing.T) {
	cases := []struct {
		name     string
		stock    int
		expected string
		daysLeft float64
	}{
		{"urgent under three days", 25, models.InventoryStatusUrgent, 2.5},
		{"warning under a week", 50, models.InventoryStatusWarning, 5.0},
		{"normal", 100, models.InventoryStatusNormal, 10.0},
		{"excess past a month", 400, models.InventoryStatusExcess, 40.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newInventoryRepoStub()
			repo.items["P-100"] = &models.Inventory{ID: "inv-1", ProductCode: "P-100", CurrentStock: tc.stock}
			svc := newInventoryService(repo, &forecastReaderStub{weekSum: 70})

			item, err := svc.Get(context.Background(), "user-1", "P-100")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, item.Status)
			require.NotNil(t, item.DaysLeft)
			assert.Equal(t, tc.daysLeft, *item.DaysLeft)
			assert.Equal(t, 70, item.WeekDemand)
		})
	}
}

func TestInventoryAnnotateMinStockFallback(t *testing.T) {
	repo := newInventoryRepoStub()
	repo.items["P-100"] = &models.Inventory{ID: "inv-1", ProductCode: "P-100", CurrentStock: 20, MinStock: 30}
	svc := newInventoryService(repo, &forecastReaderStub{})

	item, err := svc.Get(context.Background(), "user-1", "P-100")
	require.NoError(t, err)
	assert.Equal(t, models.InventoryStatusWarning, item.Status)
	assert.Nil(t, item.DaysLeft)
}

func TestInventoryCreateDuplicate(t *testing.T) {
	repo := newInventoryRepoStub()
	svc := newInventoryService(repo, &forecastReaderStub{})

	_, err := svc.Create(context.Background(), "user-1", dto.CreateInventoryRequest{
		ProductCode: "P-100",
		ProductName: "Bottle Cap",
	})
	require.NoError(t, err)
	assert.Equal(t, "ea", repo.items["P-100"].Unit)

	_, err = svc.Create(context.Background(), "user-1", dto.CreateInventoryRequest{
		ProductCode: "P-100",
		ProductName: "Bottle Cap",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestInventoryUpdatePatchesFields(t *testing.T) {
	repo := newInventoryRepoStub()
	repo.items["P-100"] = &models.Inventory{ID: "inv-1", ProductCode: "P-100", ProductName: "Bottle Cap", CurrentStock: 10, Unit: "ea"}
	svc := newInventoryService(repo, &forecastReaderStub{})

	stock := 55
	item, err := svc.Update(context.Background(), "user-1", "P-100", dto.UpdateInventoryRequest{CurrentStock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 55, item.CurrentStock)
	assert.Equal(t, "Bottle Cap", item.ProductName)
	assert.Equal(t, "ea", item.Unit)
}

func TestInventoryStockStatusThresholds(t *testing.T) {
	cases := []struct {
		stock    int
		expected string
	}{
		{5, models.InventoryStatusUrgent},
		{15, models.InventoryStatusReorder},
		{25, models.InventoryStatusNormal},
	}

	for _, tc := range cases {
		repo := newInventoryRepoStub()
		repo.items["P-100"] = &models.Inventory{ID: "inv-1", ProductCode: "P-100", CurrentStock: tc.stock}
		repo.policies["P-100"] = &models.InventoryPolicy{ProductCode: "P-100", SafetyStock: 10, ReorderPoint: 20, RecommendedOrderQty: 100}
		svc := newInventoryService(repo, &forecastReaderStub{})

		status, err := svc.StockStatus(context.Background(), "user-1", "P-100")
		require.NoError(t, err)
		assert.Equal(t, tc.expected, status.Status, "stock %d", tc.stock)
	}
}

func TestInventoryStockStatusRequiresPolicy(t *testing.T) {
	repo := newInventoryRepoStub()
	repo.items["P-100"] = &models.Inventory{ID: "inv-1", ProductCode: "P-100", CurrentStock: 5}
	svc := newInventoryService(repo, &forecastReaderStub{})

	_, err := svc.StockStatus(context.Background(), "user-1", "P-100")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestInventoryAlerts(t *testing.T) {
	repo := newInventoryRepoStub()
	repo.items["P-LOW"] = &models.Inventory{ID: "inv-1", ProductCode: "P-LOW", CurrentStock: 5}
	repo.items["P-OK"] = &models.Inventory{ID: "inv-2", ProductCode: "P-OK", CurrentStock: 500}
	repo.policies["P-LOW"] = &models.InventoryPolicy{ProductCode: "P-LOW", SafetyStock: 10, ReorderPoint: 20}
	repo.policies["P-OK"] = &models.InventoryPolicy{ProductCode: "P-OK", SafetyStock: 10, ReorderPoint: 20}
	svc := newInventoryService(repo, &forecastReaderStub{})

	alerts, err := svc.Alerts(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "P-LOW", alerts[0].ProductCode)
	assert.Equal(t, models.InventoryStatusUrgent, alerts[0].Level)
	assert.Contains(t, alerts[0].Message, "below safety stock")
}

func TestZScoreLevels(t *testing.T) {
	assert.Equal(t, 1.65, zScore(0.90))
	assert.Equal(t, 1.65, zScore(0.95))
	assert.Equal(t, 1.96, zScore(0.99))
}
