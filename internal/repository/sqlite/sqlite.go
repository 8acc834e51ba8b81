// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go).
//
// Tables are not created when the database is opened. Provisioning is the
// bootstrap step's job and goes through TableExists/CreateTable, the same
// way it does for the DynamoDB backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/sakif/connection-points/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath.
//
// dbPath examples:
//   - "data/connection-points.db" → file-based database
//   - ":memory:"                  → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent readers while a request is writing.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an already opened pool. Used by tests that inject a
// sqlmock connection.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// schemas holds the DDL for every table in repository.Tables.
// IF NOT EXISTS makes CreateTable safe when two processes race.
var schemas = map[string]string{
	repository.TableChallenges: `
		CREATE TABLE IF NOT EXISTS challenges (
			id            TEXT PRIMARY KEY,
			party_id      TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			points        INTEGER NOT NULL DEFAULT 0,
			creator       TEXT NOT NULL,
			create_date   DATETIME NOT NULL,
			due_date      DATETIME,
			recurring     TEXT NOT NULL DEFAULT '',
			owner         TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			update_date   DATETIME NOT NULL,
			complete_date DATETIME,
			accepted      INTEGER NOT NULL DEFAULT 0,
			credited      INTEGER NOT NULL DEFAULT 0,
			picture       BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_challenges_party_id ON challenges(party_id, id);`,

	repository.TableParties: `
		CREATE TABLE IF NOT EXISTS parties (
			name        TEXT PRIMARY KEY,
			id          TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			create_date DATETIME NOT NULL,
			owner       TEXT NOT NULL,
			status      TEXT NOT NULL,
			update_date DATETIME NOT NULL,
			invite_key  TEXT NOT NULL
		);`,

	repository.TableRewards: `
		CREATE TABLE IF NOT EXISTS rewards (
			id          TEXT PRIMARY KEY,
			party_id    TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cost        INTEGER NOT NULL DEFAULT 0,
			creator     TEXT NOT NULL,
			create_date DATETIME NOT NULL,
			recurring   TEXT NOT NULL DEFAULT '',
			recipient   TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'unclaimed',
			update_date DATETIME NOT NULL,
			accepted    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_rewards_party_id ON rewards(party_id, id);`,

	repository.TableUsers: `
		CREATE TABLE IF NOT EXISTS users (
			email        TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			create_date  DATETIME NOT NULL,
			password     TEXT NOT NULL,
			parties      TEXT NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);`,

	repository.TableAuthConfig: `
		CREATE TABLE IF NOT EXISTS auth_config (
			name        TEXT PRIMARY KEY,
			expiry_days INTEGER NOT NULL DEFAULT 30,
			key         TEXT NOT NULL
		);`,
}

// TableExists reports whether table has been created.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	if _, ok := schemas[table]; !ok {
		return false, fmt.Errorf("sqlite: unknown table %q", table)
	}

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking table %s: %w", table, err)
	}
	return count > 0, nil
}

// CreateTable creates table and its indexes if they do not exist yet.
func (db *DB) CreateTable(ctx context.Context, table string) error {
	ddl, ok := schemas[table]
	if !ok {
		return fmt.Errorf("sqlite: unknown table %q", table)
	}
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: creating table %s: %w", table, err)
	}
	return nil
}

// page runs a keyset-paginated SELECT built with squirrel. It asks for one
// row more than the limit to learn whether another page exists; scan reads
// one row and returns its cursor key.
func page[T any](
	ctx context.Context,
	db *DB,
	q sq.SelectBuilder,
	keyColumn string,
	opts repository.ListOptions,
	scan func(*sql.Rows) (T, string, error),
) (*repository.Page[T], error) {
	opts = opts.Normalize()
	if opts.After != "" {
		q = q.Where(sq.Gt{keyColumn: opts.After})
	}
	q = q.OrderBy(keyColumn).Limit(uint64(opts.Limit + 1))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building list query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing: %w", err)
	}
	defer rows.Close()

	result := &repository.Page[T]{Items: []T{}}
	var keys []string
	for rows.Next() {
		item, key, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning row: %w", err)
		}
		result.Items = append(result.Items, item)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rows: %w", err)
	}

	if len(result.Items) > opts.Limit {
		result.Items = result.Items[:opts.Limit]
		result.Next = keys[opts.Limit-1]
	}
	return result, nil
}
