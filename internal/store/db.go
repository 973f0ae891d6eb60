package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// pragmas are applied by the driver to every pooled connection. WAL lets the
// watcher and the HTTP API read while an import is writing.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DB is the orderwatch SQLite database: imported orders, insight snapshots,
// metric rows and recommendation state.
type DB struct {
	conn *sql.DB
}

// Open opens the database file at path, creating it and its parent directory
// when missing, and migrates it to the current schema.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	conn, err := sql.Open("sqlite", "file:"+path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return migrated(conn)
}

// OpenInMemory opens a private in-memory database. Tests use it.
func OpenInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// A second pooled connection would see a different, empty database.
	conn.SetMaxOpenConns(1)
	return migrated(conn)
}

func migrated(conn *sql.DB) (*DB, error) {
	db := &DB{conn: conn}
	if err := db.Migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying handle for ad hoc queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}
