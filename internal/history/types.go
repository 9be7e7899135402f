// Package history stores finished compliance reports so runs can be listed
// and compared later.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mcp-compliance-runner/internal/report"
)

// Record is the stored summary of one run. Report holds the full JSON
// report and is only populated by exports.
type Record struct {
	RunID       string          `json:"run_id"`
	Timestamp   time.Time       `json:"timestamp"`
	SpecVersion string          `json:"spec_version"`
	ServerURL   string          `json:"server_url"`
	Status      string          `json:"status"`
	Summary     report.Summary  `json:"summary"`
	Report      json.RawMessage `json:"report,omitempty"`
}

// Store persists compliance reports
type Store interface {
	// Save stores a report, replacing an earlier one with the same run id
	Save(ctx context.Context, r *report.ComplianceReport) error

	// Get returns the full report for a run, or nil when it is unknown
	Get(ctx context.Context, runID string) (*report.ComplianceReport, error)

	// List returns run summaries, newest first
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the number of stored runs
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every stored run including its report
	ExportJSON(ctx context.Context, writer io.Writer) error

	Close() error
}

// Export is the JSON export format
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Runs       []*Record `json:"runs"`
}

// maxExportLimit is the maximum number of runs exported at once
const maxExportLimit = 1000000

// newRecord flattens a report into a storable record
func newRecord(r *report.ComplianceReport) (*Record, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return &Record{
		RunID:       r.RunID,
		Timestamp:   r.Timestamp.UTC(),
		SpecVersion: r.SpecVersion,
		ServerURL:   r.ServerURL,
		Status:      r.OverallStatus(),
		Summary:     r.Summary,
		Report:      body,
	}, nil
}

func decodeReport(body []byte) (*report.ComplianceReport, error) {
	r := &report.ComplianceReport{}
	if err := json.Unmarshal(body, r); err != nil {
		return nil, fmt.Errorf("failed to decode stored report: %w", err)
	}
	return r, nil
}

func writeExport(writer io.Writer, runs []*Record) error {
	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(runs),
		Runs:       runs,
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans the summary columns, optionally followed by the report body
func scanRecord(s scanner, withReport bool) (*Record, error) {
	rec := &Record{}
	dest := []interface{}{
		&rec.RunID, &rec.Timestamp, &rec.SpecVersion, &rec.ServerURL, &rec.Status,
		&rec.Summary.Total, &rec.Summary.Passed, &rec.Summary.Failed, &rec.Summary.Skipped,
		&rec.Summary.MustFailures, &rec.Summary.ShouldFailures,
	}
	var body string
	if withReport {
		dest = append(dest, &body)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	if withReport {
		rec.Report = json.RawMessage(body)
	}
	return rec, nil
}

const summaryColumns = `run_id, created_at, spec_version, server_url, status,
	total, passed, failed, skipped, must_failures, should_failures`
