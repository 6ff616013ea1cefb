package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/jobs"
)

const (
	// ruleBasedMinDays is the history depth required before the moving
	// average model is trusted over the manual fallback.
	ruleBasedMinDays = 14
	forecastSpanDays = 30
	confidenceSpread = 0.15
)

var forecastHorizons = []int{7, 14, 30}

type forecastOrderReader interface {
	HistoryDays(ctx context.Context, userID, productCode string) (int, error)
	ListRecentQuantities(ctx context.Context, userID, productCode string, since time.Time) ([]int, error)
}

type forecastProductReader interface {
	FindByCode(ctx context.Context, userID, productCode string) (*models.Product, error)
	ListByUser(ctx context.Context, userID string) ([]models.Product, error)
}

type forecastWriter interface {
	ReplaceForProduct(ctx context.Context, userID, productCode string, forecasts []models.Forecast) error
	ListRange(ctx context.Context, userID, productCode string, from, to time.Time) ([]models.Forecast, error)
}

type forecastQueue interface {
	Enqueue(job jobs.Job[ForecastJobPayload]) error
}

// ForecastService produces per-product daily demand forecasts from order
// history. Two tiers are built in: a moving average with trend damping once
// enough history exists, and a flat fallback before that.
type ForecastService struct {
	orders    forecastOrderReader
	products  forecastProductReader
	forecasts forecastWriter
	queue     forecastQueue
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewForecastService constructs a ForecastService. The queue may be nil when
// batch forecasting is not wired (tests).
func NewForecastService(orders forecastOrderReader, products forecastProductReader, forecasts forecastWriter, queue forecastQueue, validate *validator.Validate, logger *zap.Logger) *ForecastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ForecastService{
		orders:    orders,
		products:  products,
		forecasts: forecasts,
		queue:     queue,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Predict computes and persists daily forecasts for one product, returning
// cumulative demand at each horizon.
func (s *ForecastService) Predict(ctx context.Context, userID string, req dto.PredictRequest) (*dto.ProductForecastResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forecast payload")
	}
	if _, err := s.products.FindByCode(ctx, userID, req.ProductCode); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
	}
	return s.predict(ctx, userID, req.ProductCode)
}

// PredictAll enqueues one forecast job per product and returns a summary.
func (s *ForecastService) PredictAll(ctx context.Context, userID string) (*dto.BatchForecastSummary, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "batch forecasting is not enabled")
	}

	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}

	summary := &dto.BatchForecastSummary{}
	for _, product := range products {
		job := jobs.Job[ForecastJobPayload]{
			ID:      uuid.NewString(),
			Type:    "forecast.predict",
			Payload: ForecastJobPayload{UserID: userID, ProductCode: product.ProductCode},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue forecast job", zap.String("product_code", product.ProductCode), zap.Error(err))
			continue
		}
		summary.QueuedProducts++
		summary.ProductCodes = append(summary.ProductCodes, product.ProductCode)
	}
	return summary, nil
}

// Status reports per-product data availability and the method that would be used.
func (s *ForecastService) Status(ctx context.Context, userID string) (*dto.ForecastStatusResponse, error) {
	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}

	resp := &dto.ForecastStatusResponse{Products: []dto.ForecastStatusEntry{}}
	for _, product := range products {
		days, err := s.orders.HistoryDays(ctx, userID, product.ProductCode)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count history")
		}
		resp.Products = append(resp.Products, dto.ForecastStatusEntry{
			ProductCode: product.ProductCode,
			HistoryDays: days,
			Method:      selectMethod(days),
		})
	}
	return resp, nil
}

// ForecastJobPayload is the payload carried by queued forecast jobs.
type ForecastJobPayload struct {
	UserID      string
	ProductCode string
}

// HandleJob processes one queued forecast job.
func (s *ForecastService) HandleJob(ctx context.Context, job jobs.Job[ForecastJobPayload]) error {
	if _, err := s.predict(ctx, job.Payload.UserID, job.Payload.ProductCode); err != nil {
		return fmt.Errorf("forecast %s: %w", job.Payload.ProductCode, err)
	}
	return nil
}

func (s *ForecastService) predict(ctx context.Context, userID, productCode string) (*dto.ProductForecastResponse, error) {
	historyDays, err := s.orders.HistoryDays(ctx, userID, productCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count history")
	}
	method := selectMethod(historyDays)

	now := s.now().UTC()
	quantities, err := s.orders.ListRecentQuantities(ctx, userID, productCode, now.AddDate(0, 0, -ruleBasedMinDays))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load order history")
	}

	dailyRate := estimateDailyRate(quantities, method)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	forecasts := make([]models.Forecast, 0, forecastSpanDays)
	for i := 1; i <= forecastSpanDays; i++ {
		predicted := int(math.Round(dailyRate))
		forecasts = append(forecasts, models.Forecast{
			UserID:          userID,
			ProductCode:     productCode,
			ForecastDate:    today.AddDate(0, 0, i),
			PredictedDemand: predicted,
			ConfidenceLower: int(math.Floor(dailyRate * (1 - confidenceSpread))),
			ConfidenceUpper: int(math.Ceil(dailyRate * (1 + confidenceSpread))),
			ModelVersion:    method,
		})
	}

	if err := s.forecasts.ReplaceForProduct(ctx, userID, productCode, forecasts); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store forecasts")
	}

	resp := &dto.ProductForecastResponse{
		ProductCode: productCode,
		HistoryDays: historyDays,
		GeneratedAt: now.Format(time.RFC3339),
	}
	for _, horizon := range forecastHorizons {
		var demand, lower, upper int
		for _, f := range forecasts[:horizon] {
			demand += f.PredictedDemand
			lower += f.ConfidenceLower
			upper += f.ConfidenceUpper
		}
		resp.Horizons = append(resp.Horizons, dto.HorizonForecast{
			HorizonDays:     horizon,
			ForecastDate:    today.AddDate(0, 0, horizon).Format(dueDateLayout),
			PredictedDemand: demand,
			ConfidenceLower: lower,
			ConfidenceUpper: upper,
			Method:          method,
		})
	}

	s.logger.Info("forecast generated",
		zap.String("user_id", userID),
		zap.String("product_code", productCode),
		zap.String("method", method),
		zap.Int("history_days", historyDays))
	return resp, nil
}

func selectMethod(historyDays int) string {
	if historyDays >= ruleBasedMinDays {
		return models.ForecastMethodRuleBased
	}
	return models.ForecastMethodManual
}

// estimateDailyRate turns recent order quantities (newest first) into a daily
// demand rate. The rule based tier compares the most recent week against the
// one before it and damps the trend to at most ±15%.
func estimateDailyRate(quantities []int, method string) float64 {
	if len(quantities) == 0 {
		return 0
	}

	var total int
	for _, q := range quantities {
		total += q
	}
	base := float64(total) / ruleBasedMinDays

	if method != models.ForecastMethodRuleBased || len(quantities) < 2 {
		return base
	}

	half := len(quantities) / 2
	var recent, previous int
	for _, q := range quantities[:half] {
		recent += q
	}
	for _, q := range quantities[half:] {
		previous += q
	}
	if previous == 0 {
		return base
	}

	trend := float64(recent) / float64(previous)
	if trend > 1+confidenceSpread {
		trend = 1 + confidenceSpread
	}
	if trend < 1-confidenceSpread {
		trend = 1 - confidenceSpread
	}
	return base * trend
}
