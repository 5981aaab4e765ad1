package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/config"
)

// Journal configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// hoursPerDay converts retention days to a time.Duration multiplier.
	hoursPerDay = 24
)

// schema creates the journal tables on first open.
// Idempotent; re-running it on an existing database is a no-op.
const schema = `
CREATE TABLE IF NOT EXISTS panics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	info        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_panics_occurred_at ON panics(occurred_at);

CREATE TABLE IF NOT EXISTS lifecycle (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	event       TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_occurred_at ON lifecycle(occurred_at);
`

// Journal wraps a SQLite database holding reactor diagnostic records.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - SQLite is configured with a single writer connection.
type Journal struct {
	db        *sql.DB
	path      string
	retention int
	closed    atomic.Bool
}

// PanicRecord is one persisted panic report.
type PanicRecord struct {
	ID         int64
	OccurredAt time.Time
	Info       string
}

// Open creates or opens the journal database.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file with WAL mode and busy timeout pragmas
//  3. Applies the schema
//  4. Verifies the connection with a ping
//  5. Prunes entries older than the retention window
//
// Parameters:
//   - cfg: Journal configuration from config.yaml
//
// Returns:
//   - *Journal: Open journal ready for use
//   - error: If the journal is disabled or opening fails
func Open(cfg config.JournalConfig) (*Journal, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying journal connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("applying journal schema: %w", err)
	}

	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // First run creates file later

	j := &Journal{
		db:        db,
		path:      cfg.Path,
		retention: cfg.Retention,
	}

	if err := j.Prune(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	return j, nil
}

// RecordPanic persists one contained panic report.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - info: The rendered panic message, including backtrace
//
// Returns:
//   - error: If the journal is closed or the insert fails
func (j *Journal) RecordPanic(ctx context.Context, info string) error {
	if j.closed.Load() {
		return ErrClosed
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO panics (occurred_at, info) VALUES (?, ?)",
		time.Now().UTC(), info,
	)
	if err != nil {
		return fmt.Errorf("recording panic: %w", err)
	}
	return nil
}

// RecentPanics returns up to limit panic records, newest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - limit: Maximum number of records to return
//
// Returns:
//   - []PanicRecord: Matching records, newest first
//   - error: If the journal is closed or the query fails
func (j *Journal) RecentPanics(ctx context.Context, limit int) ([]PanicRecord, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, occurred_at, info FROM panics ORDER BY occurred_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying panics: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var records []PanicRecord
	for rows.Next() {
		var r PanicRecord
		if err := rows.Scan(&r.ID, &r.OccurredAt, &r.Info); err != nil {
			return nil, fmt.Errorf("scanning panic record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating panic records: %w", err)
	}

	return records, nil
}

// RecordEvent persists one service lifecycle event, such as a startup or
// a shutdown counter summary.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - event: Short event name (e.g. "startup", "shutdown")
//   - detail: Free-form detail, typically JSON
//
// Returns:
//   - error: If the journal is closed or the insert fails
func (j *Journal) RecordEvent(ctx context.Context, event, detail string) error {
	if j.closed.Load() {
		return ErrClosed
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO lifecycle (occurred_at, event, detail) VALUES (?, ?, ?)",
		time.Now().UTC(), event, detail,
	)
	if err != nil {
		return fmt.Errorf("recording lifecycle event: %w", err)
	}
	return nil
}

// Prune deletes entries older than the retention window.
// A retention of 0 keeps everything.
func (j *Journal) Prune(ctx context.Context) error {
	if j.closed.Load() {
		return ErrClosed
	}
	if j.retention <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().Add(-time.Duration(j.retention) * hoursPerDay * time.Hour)
	if _, err := j.db.ExecContext(ctx, "DELETE FROM panics WHERE occurred_at < ?", cutoff); err != nil {
		return fmt.Errorf("pruning journal: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, "DELETE FROM lifecycle WHERE occurred_at < ?", cutoff); err != nil {
		return fmt.Errorf("pruning journal: %w", err)
	}
	return nil
}

// HealthCheck verifies the journal database is accessible.
func (j *Journal) HealthCheck(ctx context.Context) error {
	if j.closed.Load() {
		return ErrClosed
	}

	var result int
	if err := j.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("journal health check failed: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the database file.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the journal database. Idempotent.
func (j *Journal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	return nil
}
