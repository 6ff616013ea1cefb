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

type equipmentRepoStub struct {
	byID    map[string]*models.Equipment
	deleted []string
}

func newEquipmentRepoStub() *equipmentRepoStub {
	return &equipmentRepoStub{byID: make(map[string]*models.Equipment)}
}

func (s *equipmentRepoStub) List(ctx context.Context, userID string, filter models.EquipmentFilter) ([]models.Equipment, int, error) {
	rows := make([]models.Equipment, 0, len(s.byID))
	for _, eq := range s.byID {
		rows = append(rows, *eq)
	}
	return rows, len(rows), nil
}

func (s *equipmentRepoStub) FindByID(ctx context.Context, userID, id string) (*models.Equipment, error) {
	if eq, ok := s.byID[id]; ok {
		return eq, nil
	}
	return nil, sql.ErrNoRows
}

func (s *equipmentRepoStub) ExistsByMachineID(ctx context.Context, userID, machineID, excludeID string) (bool, error) {
	for _, eq := range s.byID {
		if eq.MachineID == machineID && eq.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *equipmentRepoStub) Create(ctx context.Context, eq *models.Equipment) error {
	if eq.ID == "" {
		eq.ID = "eq-" + eq.MachineID
	}
	s.byID[eq.ID] = eq
	return nil
}

func (s *equipmentRepoStub) Update(ctx context.Context, eq *models.Equipment) error {
	if _, ok := s.byID[eq.ID]; !ok {
		return sql.ErrNoRows
	}
	s.byID[eq.ID] = eq
	return nil
}

func (s *equipmentRepoStub) Delete(ctx context.Context, userID, id string) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func TestEquipmentCreateDefaults(t *testing.T) {
	repo := newEquipmentRepoStub()
	svc := NewEquipmentService(repo, nil, nil, nil)

	eq, err := svc.Create(context.Background(), "user-1", dto.CreateEquipmentRequest{
		MachineID:       "M-01",
		MachineName:     "Press 1",
		Tonnage:         180,
		CapacityPerHour: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, defaultShiftStart, eq.ShiftStart)
	assert.Equal(t, defaultShiftEnd, eq.ShiftEnd)
	assert.Equal(t, models.EquipmentStatusActive, eq.Status)
}

func TestEquipmentCreateDropsCachedSummary(t *testing.T) {
	repo := newEquipmentRepoStub()
	summaries := &summaryInvalidatorStub{}
	svc := NewEquipmentService(repo, summaries, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateEquipmentRequest{
		MachineID: "M-01", Tonnage: 180, CapacityPerHour: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, summaries.userIDs)
}

func TestEquipmentCreateDuplicateMachineID(t *testing.T) {
	repo := newEquipmentRepoStub()
	svc := NewEquipmentService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateEquipmentRequest{
		MachineID: "M-01", Tonnage: 180, CapacityPerHour: 100,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "user-1", dto.CreateEquipmentRequest{
		MachineID: "M-01", Tonnage: 250, CapacityPerHour: 90,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEquipmentCreateInvalidShiftWindow(t *testing.T) {
	svc := NewEquipmentService(newEquipmentRepoStub(), nil, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateEquipmentRequest{
		MachineID: "M-01", Tonnage: 180, CapacityPerHour: 100,
		ShiftStart: "18:00", ShiftEnd: "08:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEquipmentUpdateValidatesCombinedWindow(t *testing.T) {
	repo := newEquipmentRepoStub()
	repo.byID["eq-1"] = &models.Equipment{
		ID: "eq-1", MachineID: "M-01", Tonnage: 180, CapacityPerHour: 100,
		ShiftStart: "08:00", ShiftEnd: "18:00", Status: models.EquipmentStatusActive,
	}
	svc := NewEquipmentService(repo, nil, nil, nil)

	// Moving only the start past the existing end must be rejected.
	badStart := "19:00"
	_, err := svc.Update(context.Background(), "user-1", "eq-1", dto.UpdateEquipmentRequest{ShiftStart: &badStart})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	status := models.EquipmentStatusMaintenance
	eq, err := svc.Update(context.Background(), "user-1", "eq-1", dto.UpdateEquipmentRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.EquipmentStatusMaintenance, eq.Status)
	assert.Equal(t, "08:00", eq.ShiftStart)
}

func TestEquipmentGetNotFound(t *testing.T) {
	svc := NewEquipmentService(newEquipmentRepoStub(), nil, nil, nil)

	_, err := svc.Get(context.Background(), "user-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEquipmentDelete(t *testing.T) {
	repo := newEquipmentRepoStub()
	repo.byID["eq-1"] = &models.Equipment{ID: "eq-1", MachineID: "M-01"}
	svc := NewEquipmentService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "eq-1"))
	assert.Equal(t, []string{"eq-1"}, repo.deleted)

	err := svc.Delete(context.Background(), "user-1", "eq-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
