package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/smartflow-mes/smartflow-api/internal/models"
)

func orderRows(ids ...string) *sqlmock.Rows {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "order_number", "product_code", "product_name", "quantity", "due_date", "priority", "status", "is_urgent", "notes", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "user-1", "ORD-"+id, "P-100", "Bottle Cap", 500, now.AddDate(0, 0, 10), 3, "pending", false, "", now, now)
	}
	return rows
}

func TestOrderRepositoryListUrgentFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	urgent := true
	mock.ExpectQuery(regexp.QuoteMeta("AND is_urgent = $2")).
		WithArgs("user-1", true).
		WillReturnRows(orderRows("ord-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM orders")).
		WithArgs("user-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), "user-1", models.OrderFilter{Urgent: &urgent})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryListSchedulableAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND status = ANY($2) ORDER BY priority ASC, due_date ASC")).
		WithArgs("user-1", pq.Array([]string{models.OrderStatusPending, models.OrderStatusScheduled})).
		WillReturnRows(orderRows("ord-1", "ord-2"))

	rows, err := repo.ListSchedulable(context.Background(), "user-1", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryListSchedulableSubset(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("AND id = ANY($3)")).
		WithArgs("user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(orderRows("ord-2"))

	rows, err := repo.ListSchedulable(context.Background(), "user-1", []string{"ord-2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ord-2", rows[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryMarkScheduledTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = $1")).
		WithArgs(models.OrderStatusScheduled, sqlmock.AnyArg(), "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.MarkScheduledTx(context.Background(), tx, "user-1", []string{"ord-1", "ord-2"}))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryMarkScheduledTxEmptyList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.MarkScheduledTx(context.Background(), tx, "user-1", nil))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM orders")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).
			AddRow("pending", 4).
			AddRow("scheduled", 2))

	counts, err := repo.CountByStatus(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"pending": 4, "scheduled": 2}, counts)
}

func TestOrderRepositoryHistoryDays(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT DATE(created_at)) FROM orders")).
		WithArgs("user-1", "P-100").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	days, err := repo.HistoryDays(context.Background(), "user-1", "P-100")
	require.NoError(t, err)
	require.Equal(t, 21, days)
}

func TestOrderRepositoryListRecentQuantities(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOrderRepository(db)
	since := time.Now().UTC().AddDate(0, 0, -14)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT quantity FROM orders")).
		WithArgs("user-1", "P-100", since).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(120).AddRow(80))

	quantities, err := repo.ListRecentQuantities(context.Background(), "user-1", "P-100", since)
	require.NoError(t, err)
	require.Equal(t, []int{120, 80}, quantities)
}
