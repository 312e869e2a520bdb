package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &Store{DB: sqlx.NewDb(db, "mysql")}, mock
}

func TestClassify(t *testing.T) {
	assert.False(t, Classify(nil))
	assert.True(t, Classify(sql.ErrConnDone))
	assert.True(t, Classify(&mysql.MySQLError{Number: 1213, Message: "deadlock"}))
	assert.False(t, Classify(&mysql.MySQLError{Number: 1062, Message: "duplicate key"}))
	assert.True(t, Classify(errors.New("dial tcp: no such host")))
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE gapps_queue").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE gapps_queue SET p_status = ? WHERE q_id = ?", "success", 1)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
