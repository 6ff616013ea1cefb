package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/service"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/response"
)

// ForecastHandler wires HTTP endpoints to the forecast service.
type ForecastHandler struct {
	service *service.ForecastService
}

// NewForecastHandler creates a new handler.
func NewForecastHandler(svc *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: svc}
}

// Predict godoc
// @Summary Forecast demand for one product
// @Tags Forecast
// @Accept json
// @Produce json
// @Param payload body dto.PredictRequest true "Forecast payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /forecast/predict [post]
func (h *ForecastHandler) Predict(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid forecast payload"))
		return
	}

	res, err := h.service.Predict(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// PredictAll godoc
// @Summary Queue forecasts for every product
// @Tags Forecast
// @Produce json
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /forecast/predict-all [post]
func (h *ForecastHandler) PredictAll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.service.PredictAll(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, summary, nil)
}

// Status godoc
// @Summary Per-product forecast readiness
// @Tags Forecast
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /forecast/status [get]
func (h *ForecastHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
