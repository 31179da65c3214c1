package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps sql.DB for station availability storage.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

var ErrStationNotFound = errors.New("station not found")

// NewDB opens the database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stations (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per station and weekday, 0=Mon … 6=Sun.
		`CREATE TABLE IF NOT EXISTS weekly_rules (
			station_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
			closed BOOLEAN NOT NULL DEFAULT 0,
			open_time TEXT NOT NULL DEFAULT '',
			close_time TEXT NOT NULL DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (station_id, day_of_week),
			FOREIGN KEY (station_id) REFERENCES stations(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS station_exceptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			station_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			closed BOOLEAN NOT NULL DEFAULT 0,
			open_time TEXT NOT NULL DEFAULT '',
			close_time TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (station_id, date),
			FOREIGN KEY (station_id) REFERENCES stations(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS manual_overrides (
			station_id INTEGER PRIMARY KEY,
			mode TEXT NOT NULL,
			until DATETIME,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (station_id) REFERENCES stations(id) ON DELETE CASCADE
		)`,

		// Holidays from stations.yaml already offered to a station, so a deleted one stays deleted.
		`CREATE TABLE IF NOT EXISTS holiday_applied (
			station_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (station_id, date),
			FOREIGN KEY (station_id) REFERENCES stations(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_stations_active ON stations(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_exceptions_station_date ON station_exceptions(station_id, date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
