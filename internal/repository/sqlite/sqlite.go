package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"crowdwatch/internal/repository"
)

// DB is the server's settings database. A single connection serializes every statement, so
// no extra locking is needed.
type DB struct {
	conn *sql.DB
}

// New opens or creates the database at dbPath and applies the schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the settings table if it does not exist.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// putSetting stores value under key, replacing any previous value.
func (db *DB) putSetting(key, value string, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, at.UTC())
	return err
}

// getSetting returns the value stored under key, or repository.ErrNotFound.
func (db *DB) getSetting(key string) (string, time.Time, error) {
	var value string
	var updatedAt time.Time
	err := db.conn.QueryRow(`SELECT value, updated_at FROM settings WHERE key = ?`, key).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, repository.ErrNotFound
	}
	return value, updatedAt, err
}
