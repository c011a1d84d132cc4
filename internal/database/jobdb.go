package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/onionwatch/onionwatch/internal/model"
)

// JobDB provides SQLite-based storage for scan and report job records.
// It manages connection pooling and provides CRUD plus filtered-query
// operations for both record kinds.
//
// Design decision: One database file holds both tables rather than one file
// per pipeline. Reports reference scans by id, and keeping them in a single
// file makes that reference queryable and keeps backup/reset trivial.
type JobDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures JobDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended: the request
	// handlers and background workers read and write concurrently.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a JobDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*JobDB, error) {
	dbPath := filepath.Join(dbDir, "onionwatch.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer. The job lifecycle engine writes from
	// background goroutines while request handlers insert new records, so a
	// single serialized connection avoids SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	jdb := &JobDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := jdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return jdb, nil
}

// Close closes the database connection.
func (jdb *JobDB) Close() error {
	return jdb.db.Close()
}

// Path returns the path to the SQLite database file.
func (jdb *JobDB) Path() string {
	return jdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (jdb *JobDB) createTables() error {
	schema := `
	-- Scans store collection jobs: one listing fetch plus per-item detail pages
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		target TEXT NOT NULL,
		proxy_http TEXT NOT NULL DEFAULT '',
		proxy_https TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_scans_name ON scans(name);
	CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
	CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at);

	-- Reports store classification jobs; each references its owning scan
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL,
		classification TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_reports_scan ON reports(scan_id);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);
	`

	_, err := jdb.db.ExecContext(context.Background(), schema)
	return err
}

// ScanFilter narrows ListScans results. Zero-valued fields are ignored;
// set fields compose with logical AND.
type ScanFilter struct {
	// NameContains matches scans whose name contains the substring.
	NameContains string

	// Status matches scans with exactly this status.
	Status model.Status
}

// InsertScan inserts a new scan record and returns it with the assigned id.
func (jdb *JobDB) InsertScan(ctx context.Context, scan *model.Scan) (*model.Scan, error) {
	query := `
	INSERT INTO scans (name, target, proxy_http, proxy_https, created_at, status, result)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := jdb.db.ExecContext(ctx, query,
		scan.Name,
		scan.Target,
		scan.ProxyHTTP,
		scan.ProxyHTTPS,
		scan.CreatedAt.UTC().Format(sqliteTimeFormat),
		string(scan.Status),
		scan.Result,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read scan id: %w", err)
	}

	inserted := *scan
	inserted.ID = id
	return &inserted, nil
}

// GetScan retrieves a scan by id. Returns (nil, nil) if no scan exists.
func (jdb *JobDB) GetScan(ctx context.Context, id int64) (*model.Scan, error) {
	query := `
	SELECT id, name, target, proxy_http, proxy_https, created_at, status, result
	FROM scans
	WHERE id = ?
	`

	var scan model.Scan
	var createdAt, status string

	err := jdb.db.QueryRowContext(ctx, query, id).Scan(
		&scan.ID,
		&scan.Name,
		&scan.Target,
		&scan.ProxyHTTP,
		&scan.ProxyHTTPS,
		&createdAt,
		&status,
		&scan.Result,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	scan.CreatedAt = parseTimestamp(createdAt)
	scan.Status = model.Status(status)
	return &scan, nil
}

// ListScans returns scans matching the filter, ordered by id.
// Name filtering is substring match, status filtering is exact match, and
// both compose with AND when set.
func (jdb *JobDB) ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error) {
	query := `
	SELECT id, name, target, proxy_http, proxy_https, created_at, status, result
	FROM scans
	WHERE 1=1
	`
	args := make([]any, 0)

	if filter.NameContains != "" {
		query += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(filter.NameContains)+"%")
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	query += " ORDER BY id"

	rows, err := jdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		var scan model.Scan
		var createdAt, status string

		err := rows.Scan(
			&scan.ID,
			&scan.Name,
			&scan.Target,
			&scan.ProxyHTTP,
			&scan.ProxyHTTPS,
			&createdAt,
			&status,
			&scan.Result,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		scan.CreatedAt = parseTimestamp(createdAt)
		scan.Status = model.Status(status)
		scans = append(scans, scan)
	}

	return scans, rows.Err()
}

// UpdateScan writes the scan's status and result back to the database.
// The other columns are immutable after creation and are not touched.
func (jdb *JobDB) UpdateScan(ctx context.Context, scan *model.Scan) error {
	query := `UPDATE scans SET status = ?, result = ? WHERE id = ?`

	res, err := jdb.db.ExecContext(ctx, query, string(scan.Status), scan.Result, scan.ID)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check scan update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scan %d not found", scan.ID)
	}
	return nil
}

// DeleteAllScans removes every scan and report. This is the administrative
// reset operation; reports are removed too because they reference scans
// that no longer exist afterwards.
func (jdb *JobDB) DeleteAllScans(ctx context.Context) error {
	tx, err := jdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete reports: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scans`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete scans: %w", err)
	}

	return tx.Commit()
}

// InsertReport inserts a new report record and returns it with the
// assigned id.
func (jdb *JobDB) InsertReport(ctx context.Context, report *model.Report) (*model.Report, error) {
	query := `
	INSERT INTO reports (scan_id, name, created_at, status, classification)
	VALUES (?, ?, ?, ?, ?)
	`

	result, err := jdb.db.ExecContext(ctx, query,
		report.ScanID,
		report.Name,
		report.CreatedAt.UTC().Format(sqliteTimeFormat),
		string(report.Status),
		report.Classification,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read report id: %w", err)
	}

	inserted := *report
	inserted.ID = id
	return &inserted, nil
}

// GetReport retrieves a report by id. Returns (nil, nil) if no report exists.
func (jdb *JobDB) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	query := `
	SELECT id, scan_id, name, created_at, status, classification
	FROM reports
	WHERE id = ?
	`

	var report model.Report
	var createdAt, status string

	err := jdb.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.ScanID,
		&report.Name,
		&createdAt,
		&status,
		&report.Classification,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report.CreatedAt = parseTimestamp(createdAt)
	report.Status = model.Status(status)
	return &report, nil
}

// ListReports returns all reports ordered by id.
func (jdb *JobDB) ListReports(ctx context.Context) ([]model.Report, error) {
	query := `
	SELECT id, scan_id, name, created_at, status, classification
	FROM reports
	ORDER BY id
	`

	rows, err := jdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var report model.Report
		var createdAt, status string

		err := rows.Scan(
			&report.ID,
			&report.ScanID,
			&report.Name,
			&createdAt,
			&status,
			&report.Classification,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		report.CreatedAt = parseTimestamp(createdAt)
		report.Status = model.Status(status)
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// UpdateReport writes the report's status and classification back to the
// database. The other columns are immutable after creation.
func (jdb *JobDB) UpdateReport(ctx context.Context, report *model.Report) error {
	query := `UPDATE reports SET status = ?, classification = ? WHERE id = ?`

	res, err := jdb.db.ExecContext(ctx, query, string(report.Status), report.Classification, report.ID)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check report update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %d not found", report.ID)
	}
	return nil
}

// escapeLike escapes LIKE wildcards in a user-supplied substring so the
// name filter matches them literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// sqliteTimeFormat is the canonical format we write timestamps with.
const sqliteTimeFormat = "2006-01-02 15:04:05"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
