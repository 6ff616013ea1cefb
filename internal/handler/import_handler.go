package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartflow-mes/smartflow-api/internal/service"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/response"
)

// ImportHandler wires CSV bulk upload endpoints to the import service.
type ImportHandler struct {
	service *service.ImportService
}

// NewImportHandler creates a new handler.
func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{service: svc}
}

// Upload godoc
// @Summary Bulk import from a CSV file
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Import kind" Enums(equipment, orders, products)
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /imports/{kind} [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file upload"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file upload"))
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	var result interface{}
	switch c.Param("kind") {
	case "equipment":
		result, err = h.service.ImportEquipment(ctx, claims.UserID, file)
	case "orders":
		result, err = h.service.ImportOrders(ctx, claims.UserID, file)
	case "products":
		result, err = h.service.ImportProducts(ctx, claims.UserID, file)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown import kind"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Template godoc
// @Summary Download a CSV import template
// @Tags Imports
// @Produce text/csv
// @Param kind path string true "Import kind" Enums(equipment, orders, products)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /imports/{kind}/template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	kind := c.Param("kind")
	payload, err := h.service.Template(kind)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, kind+"-template.csv", "text/csv", payload)
}
