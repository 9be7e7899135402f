package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/mcp-compliance-runner/internal/report"
)

// PostgresStore keeps run history in a shared PostgreSQL database
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection. The schema is created by the
// database migrations.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection pool for databaseURL
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save upserts a report by run id
func (s *PostgresStore) Save(ctx context.Context, r *report.ComplianceReport) error {
	rec, err := newRecord(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO compliance_runs (
			run_id, created_at, spec_version, server_url, status,
			total, passed, failed, skipped, must_failures, should_failures, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			spec_version = EXCLUDED.spec_version,
			server_url = EXCLUDED.server_url,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			passed = EXCLUDED.passed,
			failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped,
			must_failures = EXCLUDED.must_failures,
			should_failures = EXCLUDED.should_failures,
			report = EXCLUDED.report
	`
	_, err = s.db.ExecContext(ctx, query,
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
func (s *PostgresStore) Get(ctx context.Context, runID string) (*report.ComplianceReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT report FROM compliance_runs WHERE run_id = $1", runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return decodeReport([]byte(body))
}

// List returns run summaries, newest first
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	return s.query(ctx, false, limit, offset)
}

func (s *PostgresStore) query(ctx context.Context, withReport bool, limit, offset int) ([]*Record, error) {
	columns := summaryColumns
	if withReport {
		columns += ", report"
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns+" FROM compliance_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows, withReport)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored runs
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM compliance_runs").Scan(&count)
	return count, err
}

// ExportJSON writes every stored run including its report
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	runs, err := s.query(ctx, true, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return writeExport(writer, runs)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
