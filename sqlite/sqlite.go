// Package sqlite provides the SQLite-backed incremental store for crawled
// transaction records.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/kimata/merhist"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db       *sql.DB
	path     string
	lockPath string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection, acquires the store lock, and creates
// the schema if needed. Returns ECONFLICT when another process already holds
// the same store path.
func (db *DB) Open() error {
	if err := db.acquireLock(); err != nil {
		return err
	}

	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		db.releaseLock()
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		db.releaseLock()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set busy timeout to wait 5 seconds before failing on lock contention.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		db.releaseLock()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL mode makes each per-record commit cheap while keeping it durable.
	// Not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			db.releaseLock()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		db.releaseLock()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection and releases the store lock.
func (db *DB) Close() error {
	var err error
	if db.db != nil {
		err = db.db.Close()
		db.db = nil
	}
	db.releaseLock()
	return err
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// acquireLock creates an exclusive lock file next to the database. One
// crawl process per store path; concurrent invocations would interleave
// writers and are rejected outright.
func (db *DB) acquireLock() error {
	if db.path == ":memory:" {
		return nil
	}

	lockPath := db.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return merhist.Errorf(merhist.ECONFLICT,
				"store %q is in use by another process (stale? remove %s)", db.path, lockPath)
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	db.lockPath = lockPath
	return nil
}

func (db *DB) releaseLock() {
	if db.lockPath != "" {
		_ = os.Remove(db.lockPath)
		db.lockPath = ""
	}
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sold_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			order_url TEXT NOT NULL DEFAULT '',
			item_url TEXT NOT NULL DEFAULT '',
			shop TEXT NOT NULL DEFAULT '',
			count INTEGER NOT NULL DEFAULT 1,
			category TEXT NOT NULL DEFAULT '',
			condition TEXT NOT NULL DEFAULT '',
			postage_charge TEXT NOT NULL DEFAULT '',
			seller_region TEXT NOT NULL DEFAULT '',
			shipping_method TEXT NOT NULL DEFAULT '',
			purchase_date TEXT NOT NULL DEFAULT '',
			price INTEGER NOT NULL DEFAULT 0,
			commission INTEGER NOT NULL DEFAULT 0,
			postage INTEGER NOT NULL DEFAULT 0,
			commission_rate INTEGER NOT NULL DEFAULT 0,
			profit INTEGER NOT NULL DEFAULT 0,
			completion_date TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS bought_items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			order_url TEXT NOT NULL DEFAULT '',
			item_url TEXT NOT NULL DEFAULT '',
			shop TEXT NOT NULL DEFAULT '',
			count INTEGER NOT NULL DEFAULT 1,
			category TEXT NOT NULL DEFAULT '',
			condition TEXT NOT NULL DEFAULT '',
			postage_charge TEXT NOT NULL DEFAULT '',
			seller_region TEXT NOT NULL DEFAULT '',
			shipping_method TEXT NOT NULL DEFAULT '',
			purchase_date TEXT NOT NULL DEFAULT '',
			price INTEGER NOT NULL DEFAULT 0,
			thumbnail_url TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sold_completion ON sold_items(completion_date);
		CREATE INDEX IF NOT EXISTS idx_bought_purchase ON bought_items(purchase_date);
	`

	_, err := db.db.Exec(schema)
	return err
}
