package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/rl1809/shop-admin/internal/port"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

type sqlStatements struct {
	schema string
	load   string
	insert string
	update string
}

var dialectStatements = map[Dialect]sqlStatements{
	DialectMySQL: {
		schema: `
			CREATE TABLE IF NOT EXISTS app_state (
				name       VARCHAR(64) NOT NULL PRIMARY KEY,
				payload    LONGTEXT    NOT NULL,
				version    BIGINT      NOT NULL,
				updated_at DATETIME(6) NOT NULL
			)`,
		load:   `SELECT payload, version FROM app_state WHERE name = ?`,
		insert: `INSERT INTO app_state (name, payload, version, updated_at) VALUES (?, ?, 1, ?)`,
		update: `
			UPDATE app_state
			SET payload = ?, version = version + 1, updated_at = ?
			WHERE name = ? AND version = ?`,
	},
	DialectPostgres: {
		schema: `
			CREATE TABLE IF NOT EXISTS app_state (
				name       TEXT        NOT NULL PRIMARY KEY,
				payload    TEXT        NOT NULL,
				version    BIGINT      NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
		load:   `SELECT payload, version FROM app_state WHERE name = $1`,
		insert: `INSERT INTO app_state (name, payload, version, updated_at) VALUES ($1, $2, 1, $3)`,
		update: `
			UPDATE app_state
			SET payload = $1, version = version + 1, updated_at = $2
			WHERE name = $3 AND version = $4`,
	},
}

// SQLStore keeps state entries as rows of the app_state table. A first write
// inserts version 1; later writes only land on the version they read.
type SQLStore struct {
	db    *sql.DB
	stmts sqlStatements
	now   func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	stmts, ok := dialectStatements[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return &SQLStore{db: db, stmts: stmts, now: time.Now}, nil
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.stmts.schema); err != nil {
		return fmt.Errorf("create app_state: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, key string) (port.Snapshot, error) {
	var (
		payload string
		snap    port.Snapshot
	)
	err := s.db.QueryRowContext(ctx, s.stmts.load, key).Scan(&payload, &snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return port.Snapshot{}, nil
	}
	if err != nil {
		return port.Snapshot{}, fmt.Errorf("query %s: %w", key, err)
	}
	snap.Data = []byte(payload)
	return snap, nil
}

func (s *SQLStore) Store(ctx context.Context, key string, data []byte, expectedVersion int64) error {
	now := s.now().UTC()

	if expectedVersion == 0 {
		_, err := s.db.ExecContext(ctx, s.stmts.insert, key, string(data), now)
		if isDuplicateKey(err) {
			return port.ErrOptimisticLock
		}
		if err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, s.stmts.update, string(data), now, key, expectedVersion)
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected %s: %w", key, err)
	}
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == postgresUniqueViolation
	}
	return false
}
