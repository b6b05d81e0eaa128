package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-admin/internal/port"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, dialect Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLStore(db, dialect)
	require.NoError(t, err)
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

func TestSQLStore_LoadMissingRow(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload, version FROM app_state WHERE name = $1`)).
		WithArgs("products").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "version"}))

	snap, err := store.Load(context.Background(), "products")
	require.NoError(t, err)
	assert.Nil(t, snap.Data)
	assert.Equal(t, int64(0), snap.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LoadExistingRow(t *testing.T) {
	store, mock := newMockStore(t, DialectMySQL)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload, version FROM app_state WHERE name = ?`)).
		WithArgs("orders").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "version"}).AddRow(`[{"id":"ORD-1"}]`, 4))

	snap, err := store.Load(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"ORD-1"}]`, string(snap.Data))
	assert.Equal(t, int64(4), snap.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_FirstWriteInserts(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO app_state`)).
		WithArgs("products", `[]`, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Store(context.Background(), "products", []byte(`[]`), 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DuplicateInsertIsConflict(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
	}{
		{name: "mysql", dialect: DialectMySQL, err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}},
		{name: "postgres", dialect: DialectPostgres, err: &pq.Error{Code: "23505"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t, tt.dialect)
			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO app_state`)).WillReturnError(tt.err)

			err := store.Store(context.Background(), "orders", []byte(`[]`), 0)
			assert.ErrorIs(t, err, port.ErrOptimisticLock)
		})
	}
}

func TestSQLStore_UpdateGuardsVersion(t *testing.T) {
	store, mock := newMockStore(t, DialectMySQL)
	update := regexp.QuoteMeta(`UPDATE app_state`)

	mock.ExpectExec(update).
		WithArgs(`[1]`, fixedNow, "orders", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).
		WithArgs(`[2]`, fixedNow, "orders", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Store(context.Background(), "orders", []byte(`[1]`), 3))
	assert.ErrorIs(t, store.Store(context.Background(), "orders", []byte(`[2]`), 3), port.ErrOptimisticLock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DriverErrorIsWrapped(t *testing.T) {
	store, mock := newMockStore(t, DialectPostgres)
	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE app_state`)).WillReturnError(boom)

	err := store.Store(context.Background(), "orders", []byte(`[]`), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, port.ErrOptimisticLock)
}

func TestSQLStore_RowsAffectedErrorIsNotAConflict(t *testing.T) {
	store, mock := newMockStore(t, DialectMySQL)
	unsupported := errors.New("rows affected not supported")
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE app_state`)).
		WillReturnResult(sqlmock.NewErrorResult(unsupported))

	err := store.Store(context.Background(), "orders", []byte(`[]`), 2)
	assert.ErrorIs(t, err, unsupported)
	assert.NotErrorIs(t, err, port.ErrOptimisticLock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLStore_UnknownDialect(t *testing.T) {
	_, err := NewSQLStore(nil, "oracle")
	assert.Error(t, err)
}

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/shopadmin?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func TestSQLStore_MySQLOptimisticLock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store, err := NewSQLStore(db, DialectMySQL)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))

	// Cleanup old test rows
	db.ExecContext(ctx, `DELETE FROM app_state WHERE name = 'test-lock'`)

	require.NoError(t, store.Store(ctx, "test-lock", []byte(`[]`), 0))
	assert.ErrorIs(t, store.Store(ctx, "test-lock", []byte(`[]`), 0), port.ErrOptimisticLock)

	snap, err := store.Load(ctx, "test-lock")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)

	require.NoError(t, store.Store(ctx, "test-lock", []byte(`[1]`), 1))
	assert.ErrorIs(t, store.Store(ctx, "test-lock", []byte(`[2]`), 1), port.ErrOptimisticLock)

	db.ExecContext(ctx, `DELETE FROM app_state WHERE name = 'test-lock'`)
}
