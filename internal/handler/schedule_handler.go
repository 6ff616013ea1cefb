package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/service"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/response"
)

// ScheduleHandler wires HTTP endpoints to the schedule service.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler creates a new handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Generate godoc
// @Summary Generate a production schedule
// @Description Runs the greedy scheduler over pending orders and active machines
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Result godoc
// @Summary Fetch a stored schedule
// @Description Returns the requested run, or the most recent one when schedule_id is omitted
// @Tags Schedule
// @Produce json
// @Param schedule_id query string false "Schedule run ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/result [get]
func (h *ScheduleHandler) Result(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.ScheduleResultQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	res, err := h.service.Result(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Gantt godoc
// @Summary Per-machine gantt view of a schedule
// @Tags Schedule
// @Produce json
// @Param schedule_id query string false "Schedule run ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/gantt [get]
func (h *ScheduleHandler) Gantt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	machines, err := h.service.Gantt(c.Request.Context(), claims.UserID, c.Query("schedule_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, machines, nil)
}

// ExportCSV godoc
// @Summary Export a schedule as CSV
// @Tags Schedule
// @Produce text/csv
// @Param schedule_id query string false "Schedule run ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /schedule/export [get]
func (h *ScheduleHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := h.service.ExportCSV(c.Request.Context(), claims.UserID, c.Query("schedule_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("schedule-%s.csv", time.Now().UTC().Format("20060102"))
	response.Attachment(c, filename, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export a schedule as PDF
// @Tags Schedule
// @Produce application/pdf
// @Param schedule_id query string false "Schedule run ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /schedule/export/pdf [get]
func (h *ScheduleHandler) ExportPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, err := h.service.ExportPDF(c.Request.Context(), claims.UserID, c.Query("schedule_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("schedule-%s.pdf", time.Now().UTC().Format("20060102"))
	response.Attachment(c, filename, "application/pdf", payload)
}
