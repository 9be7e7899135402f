package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mcp-compliance-runner/internal/report"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run history in a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database file, creating it and its schema when missing
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS compliance_runs (
		run_id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		spec_version TEXT NOT NULL,
		server_url TEXT NOT NULL,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		passed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		must_failures INTEGER NOT NULL DEFAULT 0,
		should_failures INTEGER NOT NULL DEFAULT 0,
		report TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON compliance_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_server_url ON compliance_runs(server_url);
	`
	_, err := db.Exec(schema)
	return err
}

// Save stores a report, replacing an earlier one with the same run id
func (s *SQLiteStore) Save(ctx context.Context, r *report.ComplianceReport) error {
	rec, err := newRecord(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO compliance_runs (
			run_id, created_at, spec_version, server_url, status,
			total, passed, failed, skipped, must_failures, should_failures, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			created_at = excluded.created_at,
			spec_version = excluded.spec_version,
			server_url = excluded.server_url,
			status = excluded.status,
			total = excluded.total,
			passed = excluded.passed,
			failed = excluded.failed,
			skipped = excluded.skipped,
			must_failures = excluded.must_failures,
			should_failures = excluded.should_failures,
			report = excluded.report
	`,
		rec.RunID, rec.Timestamp, rec.SpecVersion, rec.ServerURL, rec.Status,
		rec.Summary.Total, rec.Summary.Passed, rec.Summary.Failed, rec.Summary.Skipped,
		rec.Summary.MustFailures, rec.Summary.ShouldFailures, string(rec.Report),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get returns the full report for a run
func (s *SQLiteStore) Get(ctx context.Context, runID string) (*report.ComplianceReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT report FROM compliance_runs WHERE run_id = ?", runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return decodeReport([]byte(body))
}

// List returns run summaries, newest first
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	return s.query(ctx, false, limit, offset)
}

func (s *SQLiteStore) query(ctx context.Context, withReport bool, limit, offset int) ([]*Record, error) {
	columns := summaryColumns
	if withReport {
		columns += ", report"
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns+" FROM compliance_runs ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows, withReport)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored runs
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM compliance_runs").Scan(&count)
	return count, err
}

// ExportJSON writes every stored run including its report
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	runs, err := s.query(ctx, true, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return writeExport(writer, runs)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
