// Package report aggregates check results into the persisted compliance report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mcp-compliance-runner/internal/domain"
)

// Overall statuses
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Summary is the aggregate tally of a run
type Summary struct {
	Total          int `json:"total"`
	Passed         int `json:"passed"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
	MustFailures   int `json:"must_failures"`
	ShouldFailures int `json:"should_failures"`
}

// ComplianceReport is the outcome of one run
type ComplianceReport struct {
	RunID       string               `json:"run_id"`
	Timestamp   time.Time            `json:"timestamp"`
	SpecVersion string               `json:"spec_version"`
	ServerURL   string               `json:"server_url"`
	Summary     Summary              `json:"summary"`
	Results     []domain.CheckResult `json:"results"`
}

// Meta identifies a run; zero RunID and Timestamp are generated
type Meta struct {
	RunID       string
	Timestamp   time.Time
	SpecVersion string
	ServerURL   string
}

// Describer looks up requirement descriptions
type Describer interface {
	Describe(feature, id string) (string, bool)
}

// Finalize builds the report. Results without a description are enriched
// from describer when one is given.
func Finalize(results []domain.CheckResult, meta Meta, describer Describer) *ComplianceReport {
	if meta.RunID == "" {
		meta.RunID = uuid.New().String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}

	out := make([]domain.CheckResult, len(results))
	copy(out, results)
	if describer != nil {
		for i := range out {
			if out[i].Description != "" {
				continue
			}
			if desc, ok := describer.Describe(out[i].Feature, out[i].RequirementID); ok {
				out[i].Description = desc
			}
		}
	}

	return &ComplianceReport{
		RunID:       meta.RunID,
		Timestamp:   meta.Timestamp,
		SpecVersion: meta.SpecVersion,
		ServerURL:   meta.ServerURL,
		Summary:     Summarize(out),
		Results:     out,
	}
}

// Summarize tallies results; XFAIL and XPASS count as passed
func Summarize(results []domain.CheckResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeFail:
			s.Failed++
			switch r.Level {
			case domain.LevelMust:
				s.MustFailures++
			case domain.LevelShould:
				s.ShouldFailures++
			}
		case domain.OutcomeSkipped:
			s.Skipped++
		}
	}
	s.Passed = s.Total - s.Failed - s.Skipped
	return s
}

// OverallStatus is FAIL iff a MUST requirement failed
func (r *ComplianceReport) OverallStatus() string {
	if r.Summary.MustFailures > 0 {
		return StatusFail
	}
	return StatusPass
}

// ExitCode maps the overall status onto a process exit code
func (r *ComplianceReport) ExitCode() int {
	if r.OverallStatus() == StatusFail {
		return 1
	}
	return 0
}

// WriteJSON writes the report as indented JSON, creating parent directories
func (r *ComplianceReport) WriteJSON(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
