package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/smartflow-mes/smartflow-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func equipmentRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "user_id", "machine_id", "machine_name", "tonnage", "capacity_per_hour", "shift_start", "shift_end", "status", "created_at", "updated_at"}).
		AddRow("eq-1", "user-1", "M-01", "Press 1", 180, 100, "08:00", "18:00", "active", now, now)
}

func TestEquipmentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, machine_id")).
		WithArgs("user-1", "active", "%press%").
		WillReturnRows(equipmentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM equipment")).
		WithArgs("user-1", "active", "%press%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), "user-1", models.EquipmentFilter{Status: "active", Search: "Press"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "M-01", rows[0].MachineID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM equipment WHERE user_id = $1 AND status = $2 ORDER BY machine_id ASC")).
		WithArgs("user-1", models.EquipmentStatusActive).
		WillReturnRows(equipmentRows())

	rows, err := repo.ListActive(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM equipment WHERE user_id = $1 AND id = $2")).
		WithArgs("user-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "user-1", "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEquipmentRepositoryExistsByMachineID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM equipment WHERE user_id = $1 AND machine_id = $2")).
		WithArgs("user-1", "M-01").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByMachineID(context.Background(), "user-1", "M-01", "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $3")).
		WithArgs("user-1", "M-01", "eq-1").
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsByMachineID(context.Background(), "user-1", "M-01", "eq-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO equipment")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	eq := &models.Equipment{UserID: "user-1", MachineID: "M-01", Tonnage: 180, CapacityPerHour: 100}
	require.NoError(t, repo.Create(context.Background(), eq))
	require.NotEmpty(t, eq.ID)
	require.False(t, eq.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Equipment{ID: "missing", UserID: "user-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEquipmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM equipment WHERE user_id = $1 AND id = $2")).
		WithArgs("user-1", "eq-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "user-1", "eq-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepositoryCountActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEquipmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM equipment WHERE user_id = $1 AND status = $2")).
		WithArgs("user-1", models.EquipmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	total, err := repo.CountActive(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 5, total)
}
