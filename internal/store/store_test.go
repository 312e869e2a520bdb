package store

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzanotti/gappsd-go/internal/sqlstore"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return New(&sqlstore.Store{DB: sqlx.NewDb(db, "mysql")}), mock
}

func TestGetAccount_NotFoundReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM gapps_accounts").
		WithArgs("jane").
		WillReturnRows(sqlmock.NewRows([]string{"g_account_name"}))

	a, err := s.GetAccount(context.Background(), "jane")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccount_Found(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{
		"g_account_name", "g_first_name", "g_last_name", "g_is_admin", "g_is_suspended",
		"g_status", "g_disk_usage", "g_creation_date", "g_last_login", "g_last_webmail", "g_update_date",
	}).AddRow("jane", "Jane", "Doe", false, false, "active", int64(1024), nil, nil, nil, time.Now())
	mock.ExpectQuery("SELECT \\* FROM gapps_accounts").WithArgs("jane").WillReturnRows(rows)

	a, err := s.GetAccount(context.Background(), "jane")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "jane", a.Name)
	assert.Equal(t, "active", a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAccount(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO gapps_accounts").WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.UpsertAccount(context.Background(), &Account{Name: "jane", Status: "active"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestReportDate_EmptyTableReturnsZero(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT MAX\\(g_date\\) FROM gapps_reporting").
		WillReturnRows(sqlmock.NewRows([]string{"MAX(g_date)"}).AddRow(nil))

	d, err := s.LatestReportDate(context.Background())
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUsageSnapshot(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT IGNORE INTO gapps_reporting").WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.InsertUsageSnapshot(context.Background(), &UsageSnapshot{Date: time.Now(), NumAccounts: 5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
