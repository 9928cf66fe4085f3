// Package journal provides optional SQLite-backed persistence of per-tick
// telemetry. Uses WAL mode for crash-safe appends from the single-writer
// daemon loop; rows are trimmed by age so the file stays bounded.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps the journal's SQLite connection.
type DB struct {
	db *sql.DB
}

// Record is one tick's persisted telemetry. Nullable telemetry fields
// are stored as NULL, not zero.
type Record struct {
	Time        time.Time
	RunID       string
	PowerSource string
	AvgUsage    *float64
	MaxTempC    *float64
	BatteryPct  *float64
	BatteryRate *float64
	TurboState  string
	IntervalSec uint
}

// Open creates or opens the journal database at path, running the schema
// migration. The parent directory is created if needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	// The daemon loop is the only writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return d, nil
}

// Close shuts down the database.
func (d *DB) Close() error { return d.db.Close() }

func (d *DB) migrate() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS ticks (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp    INTEGER NOT NULL,
		run_id       TEXT NOT NULL,
		power_source TEXT NOT NULL,
		avg_usage    REAL,
		max_temp_c   REAL,
		battery_pct  REAL,
		battery_rate REAL,
		turbo_state  TEXT NOT NULL,
		interval_sec INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`CREATE INDEX IF NOT EXISTS idx_ticks_ts ON ticks(timestamp)`)
	return err
}

// Append writes one tick record.
func (d *DB) Append(r Record) error {
	_, err := d.db.Exec(
		`INSERT INTO ticks (timestamp, run_id, power_source, avg_usage, max_temp_c,
			battery_pct, battery_rate, turbo_state, interval_sec)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Time.Unix(), r.RunID, r.PowerSource,
		nullFloat(r.AvgUsage), nullFloat(r.MaxTempC),
		nullFloat(r.BatteryPct), nullFloat(r.BatteryRate),
		r.TurboState, r.IntervalSec,
	)
	return err
}

// Trim deletes records older than the retention window. Returns the
// number of rows removed.
func (d *DB) Trim(retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention).Unix()
	res, err := d.db.Exec(`DELETE FROM ticks WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored tick records.
func (d *DB) Count() (int64, error) {
	var n int64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
