// Package db provides the SQLite database wrapper and model types for tokenbench.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB and provides migration support.
type DB struct {
	*sql.DB
}

// New opens a SQLite connection with WAL mode enabled.
// Driver name is "sqlite" (modernc.org/sqlite, not mattn/go-sqlite3).
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal=WAL")
	if err != nil {
		return nil, fmt.Errorf("db.New: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db.New: ping: %w", err)
	}
	// Limit to 1 writer at a time to avoid SQLITE_BUSY in WAL mode.
	sqlDB.SetMaxOpenConns(1)
	return &DB{sqlDB}, nil
}

// Migrate runs all CREATE TABLE IF NOT EXISTS migrations exactly once per schema version.
func (d *DB) Migrate() error {
	// Ensure the settings table exists first (holds schema_version).
	if _, err := d.Exec(ddlSettings); err != nil {
		return fmt.Errorf("db.Migrate: settings table: %w", err)
	}

	var version int
	row := d.QueryRow(`SELECT value FROM settings WHERE key='schema_version' LIMIT 1`)
	_ = row.Scan(&version) // Row may not exist yet (version=0).

	if version >= schemaVersion {
		return nil
	}

	for _, ddl := range []string{ddlKV, ddlUsage, ddlUsageIndex} {
		if _, err := d.Exec(ddl); err != nil {
			return fmt.Errorf("db.Migrate: %w", err)
		}
	}

	_, err := d.Exec(`INSERT INTO settings (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, schemaVersion)
	if err != nil {
		return fmt.Errorf("db.Migrate: schema_version upsert: %w", err)
	}
	return nil
}

const schemaVersion = 1

// ── Model Types ──────────────────────────────────────────────────────────────

// Usage records the tokens and estimated cost of one committed analysis.
type Usage struct {
	ID        int       `json:"id"`
	Date      string    `json:"date"`
	Encoding  string    `json:"encoding"`
	Tokens    int       `json:"tokens"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageDay is a per-day, per-encoding aggregate of Usage rows.
type UsageDay struct {
	Date     string  `json:"date"`
	Encoding string  `json:"encoding"`
	Runs     int     `json:"runs"`
	Tokens   int     `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// ── DDL Statements ───────────────────────────────────────────────────────────

const ddlSettings = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);`

const ddlKV = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const ddlUsage = `CREATE TABLE IF NOT EXISTS usage (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	date       TEXT    NOT NULL,
	encoding   TEXT    NOT NULL DEFAULT '',
	tokens     INTEGER NOT NULL DEFAULT 0,
	cost       REAL    NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const ddlUsageIndex = `CREATE INDEX IF NOT EXISTS usage_date ON usage(date);`

// ── Helpers ───────────────────────────────────────────────────────────────────

// GetSetting retrieves a settings value by key, returning fallback if not found.
func (d *DB) GetSetting(key, fallback string) string {
	var v string
	if err := d.QueryRow(`SELECT value FROM settings WHERE key=?`, key).Scan(&v); err != nil {
		return fallback
	}
	return v
}

// SetSetting upserts a settings key-value pair.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.Exec(
		`INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("db.SetSetting: %w", err)
	}
	return nil
}

// RecordUsage inserts a usage row dated today.
func (d *DB) RecordUsage(ctx context.Context, encoding string, tokens int, cost float64) error {
	today := time.Now().Format("2006-01-02")
	_, err := d.ExecContext(ctx,
		`INSERT INTO usage (date, encoding, tokens, cost) VALUES (?,?,?,?)`,
		today, encoding, tokens, cost,
	)
	if err != nil {
		return fmt.Errorf("db.RecordUsage: %w", err)
	}
	return nil
}

// UsageSince aggregates usage rows dated on or after since (YYYY-MM-DD).
func (d *DB) UsageSince(ctx context.Context, since string) ([]UsageDay, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT date, encoding, COUNT(*), SUM(tokens), SUM(cost)
		FROM usage WHERE date >= ?
		GROUP BY date, encoding ORDER BY date DESC, encoding`, since)
	if err != nil {
		return nil, fmt.Errorf("db.UsageSince: %w", err)
	}
	defer rows.Close()

	var out []UsageDay
	for rows.Next() {
		var u UsageDay
		if err := rows.Scan(&u.Date, &u.Encoding, &u.Runs, &u.Tokens, &u.Cost); err != nil {
			return nil, fmt.Errorf("db.UsageSince: scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Usage reporting periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// PeriodStart returns the first date (YYYY-MM-DD) covered by period as of now.
// An empty period means daily.
func PeriodStart(period string, now time.Time) (string, error) {
	switch period {
	case PeriodDaily, "":
		return now.Format("2006-01-02"), nil
	case PeriodWeekly:
		return now.AddDate(0, 0, -7).Format("2006-01-02"), nil
	case PeriodMonthly:
		return now.AddDate(0, -1, 0).Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("period must be daily, weekly or monthly")
	}
}
