// Package db is the usage ledger: an append-only log of generation
// attempts plus a single-row account-info cache, reachable through one
// connection string. A postgres:// URL uses lib/pq; anything else is
// treated as a SQLite file path owned by the application.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Register the database drivers.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

// DB wraps the SQL connection with the ledger operations.
type DB struct {
	*sql.DB
	dialect dialect
	dsn     string
}

// New opens the ledger store and initializes its schema.
func New(databaseURL string) (*DB, error) {
	var (
		d      dialect
		driver string
		dsn    string
	)

	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		d, driver, dsn = dialectPostgres, "postgres", databaseURL
	} else {
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		d, driver, dsn = dialectSQLite, "sqlite", path
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, dialect: d, dsn: dsn}

	if d == dialectSQLite {
		if err := db.configure(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// configure sets SQLite pragmas for concurrent reader/writer behavior.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createUsageRecordsTable(); err != nil {
		return err
	}
	return db.createAccountInfoCacheTable()
}

func (db *DB) createUsageRecordsTable() error {
	var query string
	if db.dialect == dialectPostgres {
		query = `
		CREATE TABLE IF NOT EXISTS usage_records (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
			text TEXT NOT NULL,
			character_count INTEGER NOT NULL,
			voice_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
		CREATE INDEX IF NOT EXISTS idx_usage_voice ON usage_records(voice_id);
		`
	} else {
		query = `
		CREATE TABLE IF NOT EXISTS usage_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			text TEXT NOT NULL,
			character_count INTEGER NOT NULL,
			voice_id TEXT NOT NULL,
			model_id TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage_records(timestamp);
		CREATE INDEX IF NOT EXISTS idx_usage_voice ON usage_records(voice_id);
		`
	}
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createAccountInfoCacheTable() error {
	tsType := "DATETIME"
	if db.dialect == dialectPostgres {
		tsType = "TIMESTAMPTZ"
	}
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS account_info_cache (
		id INTEGER PRIMARY KEY DEFAULT 1,
		subscription_tier TEXT,
		character_limit BIGINT,
		characters_used BIGINT,
		characters_remaining BIGINT,
		reset_date %s,
		last_updated %s
	);
	`, tsType, tsType)
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the connection, checkpointing the SQLite WAL first.
func (db *DB) Close() error {
	if db.dialect == dialectSQLite {
		_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return db.DB.Close()
}

// rebind rewrites ?-placeholders to $n for the postgres dialect.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// bindTime formats timestamps for storage and comparison. A single
// fixed-width UTC layout keeps SQLite's text comparisons correct; postgres
// casts the literal to timestamptz.
func (db *DB) bindTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// dayExpr is the per-dialect expression grouping timestamps by calendar day.
func (db *DB) dayExpr() string {
	if db.dialect == dialectPostgres {
		return "to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	}
	return "date(timestamp)"
}

// timeFormats covers the layouts drivers hand back for timestamp columns.
var timeFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
