package history

import (
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/report"
)

func sampleReport(runID string, ts time.Time, mustFail bool) *report.ComplianceReport {
	outcome := domain.OutcomePass
	if mustFail {
		outcome = domain.OutcomeFail
	}
	results := []domain.CheckResult{
		{Check: "prompts_list", RequirementID: "PROMPTS-LIST-1", Feature: "prompts/list", Level: domain.LevelMust, Outcome: outcome, Description: "lists prompts"},
		{Check: "tools_call_rate_limit", RequirementID: "TOOLS-CALL-5", Feature: "tools/call", Level: domain.LevelShould, Outcome: domain.OutcomeSkipped, Reason: "no rate limiting observed"},
	}
	return report.Finalize(results, report.Meta{
		RunID:       runID,
		Timestamp:   ts,
		SpecVersion: "2025-03-26",
		ServerURL:   "http://localhost:8000",
	}, nil)
}
