package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/service"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/response"
)

// InventoryHandler wires HTTP endpoints to the inventory service.
type InventoryHandler struct {
	service *service.InventoryService
}

// NewInventoryHandler creates a new handler.
func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: svc}
}

// List godoc
// @Summary List stock items with risk annotations
// @Tags Inventory
// @Produce json
// @Param search query string false "Search product code or name"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, pagination, err := h.service.List(c.Request.Context(), claims.UserID, c.Query("search"), queryInt(c, "page"), queryInt(c, "page_size"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one stock item
// @Tags Inventory
// @Produce json
// @Param code path string true "Product code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{code} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Register stock for a product
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body dto.CreateInventoryRequest true "Inventory payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inventory payload"))
		return
	}

	item, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update a stock record
// @Tags Inventory
// @Accept json
// @Produce json
// @Param code path string true "Product code"
// @Param payload body dto.UpdateInventoryRequest true "Inventory payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{code} [put]
func (h *InventoryHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inventory payload"))
		return
	}

	item, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete a stock record
// @Tags Inventory
// @Param code path string true "Product code"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{code} [delete]
func (h *InventoryHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CalculatePolicy godoc
// @Summary Calculate reorder policy from demand forecasts
// @Tags Inventory
// @Accept json
// @Produce json
// @Param payload body dto.CalculatePolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/policy/calculate [post]
func (h *InventoryHandler) CalculatePolicy(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CalculatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid policy payload"))
		return
	}

	policy, err := h.service.CalculatePolicy(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// StockStatus godoc
// @Summary Compare stock against the stored policy
// @Tags Inventory
// @Produce json
// @Param code path string true "Product code"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/{code}/status [get]
func (h *InventoryHandler) StockStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.StockStatus(c.Request.Context(), claims.UserID, c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Alerts godoc
// @Summary List stock alerts
// @Tags Inventory
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /inventory/alerts [get]
func (h *InventoryHandler) Alerts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	alerts, err := h.service.Alerts(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil)
}
