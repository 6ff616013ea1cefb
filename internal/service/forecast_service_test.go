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
	"github.com/smartflow-mes/smartflow-api/pkg/jobs"
)

type forecastOrderStub struct {
	historyDays int
	quantities  []int
}

func (s *forecastOrderStub) HistoryDays(ctx context.Context, userID, productCode string) (int, error) {
	return s.historyDays, nil
}

func (s *forecastOrderStub) ListRecentQuantities(ctx context.Context, userID, productCode string, since time.Time) ([]int, error) {
	return s.quantities, nil
}

type forecastProductStub struct {
	products []models.Product
}

func (s *forecastProductStub) FindByCode(ctx context.Context, userID, productCode string) (*models.Product, error) {
	for _, p := range s.products {
		if p.ProductCode == productCode {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *forecastProductStub) ListByUser(ctx context.Context, userID string) ([]models.Product, error) {
	return s.products, nil
}

type forecastWriterStub struct {
	stored     []models.Forecast
	replaceErr error
}

func (s *forecastWriterStub) ReplaceForProduct(ctx context.Context, userID, productCode string, forecasts []models.Forecast) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.stored = forecasts
	return nil
}

func (s *forecastWriterStub) ListRange(ctx context.Context, userID, productCode string, from, to time.Time) ([]models.Forecast, error) {
	return s.stored, nil
}

type forecastQueueStub struct {
	jobs []jobs.Job[ForecastJobPayload]
	err  error
}

func (s *forecastQueueStub) Enqueue(job jobs.Job[ForecastJobPayload]) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func repeatQuantities(value, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = value
	}
	return out
}

func newForecastService(orders *forecastOrderStub, products *forecastProductStub, writer *forecastWriterStub, queue *forecastQueueStub) *ForecastService {
	var q forecastQueue
	if queue != nil {
		q = queue
	}
	svc := NewForecastService(orders, products, writer, q, nil, nil)
	svc.now = func() time.Time { return schedulerNow }
	return svc
}

func TestForecastMethodSelection(t *testing.T) {
	assert.Equal(t, models.ForecastMethodManual, selectMethod(0))
	assert.Equal(t, models.ForecastMethodManual, selectMethod(13))
	assert.Equal(t, models.ForecastMethodRuleBased, selectMethod(14))
	assert.Equal(t, models.ForecastMethodRuleBased, selectMethod(90))
}

func TestForecastPredictPersistsDailyRows(t *testing.T) {
	orders := &forecastOrderStub{historyDays: 20, quantities: repeatQuantities(10, 14)}
	products := &forecastProductStub{products: []models.Product{{ProductCode: "P-100"}}}
	writer := &forecastWriterStub{}
	svc := newForecastService(orders, products, writer, nil)

	resp, err := svc.Predict(context.Background(), "user-1", dto.PredictRequest{ProductCode: "P-100"})
	require.NoError(t, err)

	assert.Equal(t, "P-100", resp.ProductCode)
	assert.Equal(t, 20, resp.HistoryDays)
	require.Len(t, writer.stored, forecastSpanDays)

	// 140 units across the 14-day window with a flat trend is 10 per day.
	first := writer.stored[0]
	assert.Equal(t, 10, first.PredictedDemand)
	assert.Equal(t, 8, first.ConfidenceLower)
	assert.Equal(t, 12, first.ConfidenceUpper)
	assert.Equal(t, models.ForecastMethodRuleBased, first.ModelVersion)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), first.ForecastDate)
	last := writer.stored[len(writer.stored)-1]
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), last.ForecastDate)

	require.Len(t, resp.Horizons, 3)
	assert.Equal(t, 7, resp.Horizons[0].HorizonDays)
	assert.Equal(t, 70, resp.Horizons[0].PredictedDemand)
	assert.Equal(t, 140, resp.Horizons[1].PredictedDemand)
	assert.Equal(t, 300, resp.Horizons[2].PredictedDemand)
}

func TestForecastPredictUnknownProduct(t *testing.T) {
	svc := newForecastService(&forecastOrderStub{}, &forecastProductStub{}, &forecastWriterStub{}, nil)

	_, err := svc.Predict(context.Background(), "user-1", dto.PredictRequest{ProductCode: "P-MISSING"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestForecastManualTierIgnoresTrend(t *testing.T) {
	// 13 history days selects the manual tier even with a strong downtrend
	// in the window.
	orders := &forecastOrderStub{historyDays: 13, quantities: []int{10, 10, 40, 40}}
	products := &forecastProductStub{products: []models.Product{{ProductCode: "P-100"}}}
	writer := &forecastWriterStub{}
	svc := newForecastService(orders, products, writer, nil)

	resp, err := svc.Predict(context.Background(), "user-1", dto.PredictRequest{ProductCode: "P-100"})
	require.NoError(t, err)
	require.Len(t, writer.stored, forecastSpanDays)
	assert.Equal(t, models.ForecastMethodManual, writer.stored[0].ModelVersion)
	// 100 units over the window without damping: ~7.14/day rounds to 7.
	assert.Equal(t, 7, writer.stored[0].PredictedDemand)
	assert.Equal(t, models.ForecastMethodManual, resp.Horizons[0].Method)
}

func TestEstimateDailyRateTrendDamping(t *testing.T) {
	// Flat history keeps the base rate.
	assert.InDelta(t, 10.0, estimateDailyRate(repeatQuantities(10, 14), models.ForecastMethodRuleBased), 0.001)

	// A collapsing trend is damped to -15% of the base rate.
	declining := []int{10, 10, 10, 40, 40, 40}
	base := 150.0 / ruleBasedMinDays
	assert.InDelta(t, base*0.85, estimateDailyRate(declining, models.ForecastMethodRuleBased), 0.001)

	// A surging trend is capped at +15%.
	surging := []int{40, 40, 40, 10, 10, 10}
	assert.InDelta(t, base*1.15, estimateDailyRate(surging, models.ForecastMethodRuleBased), 0.001)

	assert.Equal(t, 0.0, estimateDailyRate(nil, models.ForecastMethodRuleBased))
}

func TestForecastPredictAllQueuesJobs(t *testing.T) {
	products := &forecastProductStub{products: []models.Product{
		{ProductCode: "P-100"},
		{ProductCode: "P-200"},
	}}
	queue := &forecastQueueStub{}
	svc := newForecastService(&forecastOrderStub{}, products, &forecastWriterStub{}, queue)

	summary, err := svc.PredictAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.QueuedProducts)
	assert.Equal(t, []string{"P-100", "P-200"}, summary.ProductCodes)

	require.Len(t, queue.jobs, 2)
	assert.Equal(t, "forecast.predict", queue.jobs[0].Type)
	assert.Equal(t, "P-100", queue.jobs[0].Payload.ProductCode)
	assert.Equal(t, "user-1", queue.jobs[0].Payload.UserID)
}

func TestForecastPredictAllWithoutQueue(t *testing.T) {
	svc := newForecastService(&forecastOrderStub{}, &forecastProductStub{}, &forecastWriterStub{}, nil)

	_, err := svc.PredictAll(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestForecastStatus(t *testing.T) {
	orders := &forecastOrderStub{historyDays: 21}
	products := &forecastProductStub{products: []models.Product{{ProductCode: "P-100"}}}
	svc := newForecastService(orders, products, &forecastWriterStub{}, nil)

	status, err := svc.Status(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, status.Products, 1)
	assert.Equal(t, 21, status.Products[0].HistoryDays)
	assert.Equal(t, models.ForecastMethodRuleBased, status.Products[0].Method)
}

func TestForecastHandleJob(t *testing.T) {
	orders := &forecastOrderStub{historyDays: 20, quantities: repeatQuantities(10, 14)}
	products := &forecastProductStub{products: []models.Product{{ProductCode: "P-100"}}}
	writer := &forecastWriterStub{}
	svc := newForecastService(orders, products, writer, nil)

	err := svc.HandleJob(context.Background(), jobs.Job[ForecastJobPayload]{
		Type:    "forecast.predict",
		Payload: ForecastJobPayload{UserID: "user-1", ProductCode: "P-100"},
	})
	require.NoError(t, err)
	assert.Len(t, writer.stored, forecastSpanDays)

	failing := newForecastService(orders, products, &forecastWriterStub{replaceErr: sql.ErrConnDone}, nil)
	err = failing.HandleJob(context.Background(), jobs.Job[ForecastJobPayload]{
		Type:    "forecast.predict",
		Payload: ForecastJobPayload{UserID: "user-1", ProductCode: "P-100"},
	})
	require.Error(t, err)
}
