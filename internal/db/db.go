// Package db opens the in-memory SQLite database that backs nearest-row
// search.
package db

import (
	"database/sql"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register sqlite-vec as an auto-extension so every SQLite connection
	// opened by this process has the vec0 virtual table module available.
	vec.Auto()
}

// memoryDSN names a private in-memory database. It lives as long as its
// single connection.
const memoryDSN = "file::memory:?_foreign_keys=on"

// DB wraps a *sql.DB and exposes helpers.
type DB struct {
	conn *sql.DB
}

// Open creates a fresh in-memory database and applies migrations.
func Open() (*DB, error) {
	conn, err := sql.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Every connection would get its own empty database.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := applyMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Conn returns the underlying *sql.DB for use by the index layer.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Close closes the database connection, discarding its contents.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping checks the connection is live.
func (d *DB) Ping() error {
	return d.conn.Ping()
}

// VecVersion reports the loaded sqlite-vec version.
func (d *DB) VecVersion() (string, error) {
	var v string
	if err := d.conn.QueryRow(`SELECT vec_version()`).Scan(&v); err != nil {
		return "", fmt.Errorf("sqlite-vec unavailable: %w", err)
	}
	return v, nil
}
