package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartflow-mes/smartflow-api/internal/dto"
	"github.com/smartflow-mes/smartflow-api/internal/middleware"
	"github.com/smartflow-mes/smartflow-api/internal/models"
	"github.com/smartflow-mes/smartflow-api/internal/service"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
	"github.com/smartflow-mes/smartflow-api/pkg/response"
)

type equipmentRepoMock struct {
	rows    []models.Equipment
	byID    map[string]*models.Equipment
	created *models.Equipment
}

func (m *equipmentRepoMock) List(ctx context.Context, userID string, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	return m.rows, len(m.rows), nil
}

func (m *equipmentRepoMock) FindByID(ctx context.Context, userID, id string) (*models.Equipment, error) {
	eq, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return eq, nil
}

func (m *equipmentRepoMock) ExistsByMachineID(ctx context.Context, userID, machineID, excludeID string) (bool, error) {
	return false, nil
}

func (m *equipmentRepoMock) Create(ctx context.Context, eq *models.Equipment) error {
	m.created = eq
	return nil
}

func (m *equipmentRepoMock) Update(ctx context.Context, eq *models.Equipment) error {
	return nil
}

func (m *equipmentRepoMock) Delete(ctx context.Context, userID, id string) error {
	return nil
}

func newEquipmentTestContext(t *testing.T, repo *equipmentRepoMock) (*EquipmentHandler, *httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewEquipmentHandler(service.NewEquipmentService(repo, nil, nil, nil))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return handler, w, c
}

func TestEquipmentHandlerCreate(t *testing.T) {
	repo := &equipmentRepoMock{}
	handler, w, c := newEquipmentTestContext(t, repo)

	body, err := json.Marshal(dto.CreateEquipmentRequest{
		MachineID:       "M-01",
		MachineName:     "Press 120t",
		Tonnage:         120,
		CapacityPerHour: 100,
	})
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, "/equipment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "user-1", repo.created.UserID)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
	assert.NotNil(t, envelope.Data)
}

func TestEquipmentHandlerCreateInvalidBody(t *testing.T) {
	handler, w, c := newEquipmentTestContext(t, &equipmentRepoMock{})

	req, _ := http.NewRequest(http.MethodPost, "/equipment", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEquipmentHandlerRequiresClaims(t *testing.T) {
	handler, w, c := newEquipmentTestContext(t, &equipmentRepoMock{})

	req, _ := http.NewRequest(http.MethodGet, "/equipment", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, envelope.Error.Code)
}

func TestEquipmentHandlerGetNotFound(t *testing.T) {
	handler, w, c := newEquipmentTestContext(t, &equipmentRepoMock{byID: map[string]*models.Equipment{}})

	req, _ := http.NewRequest(http.MethodGet, "/equipment/eq-404", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "eq-404"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEquipmentHandlerListPagination(t *testing.T) {
	repo := &equipmentRepoMock{rows: []models.Equipment{
		{ID: "eq-1", MachineID: "M-01", MachineName: "Press A"},
		{ID: "eq-2", MachineID: "M-02", MachineName: "Press B"},
	}}
	handler, w, c := newEquipmentTestContext(t, repo)

	req, _ := http.NewRequest(http.MethodGet, "/equipment?page=1&page_size=20", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.TotalCount)
}
