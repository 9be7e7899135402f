package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mcp-compliance-runner/internal/domain"
)

var glyphs = map[domain.Outcome]string{
	domain.OutcomePass:    "✅",
	domain.OutcomeFail:    "❌",
	domain.OutcomeSkipped: "⚠️",
	domain.OutcomeXFail:   "🔸",
	domain.OutcomeXPass:   "🔹",
}

// PrintConsole writes a human summary grouped by feature. Reasons for
// passing checks are only shown when verbose.
func (r *ComplianceReport) PrintConsole(w io.Writer, verbose bool) {
	byFeature := make(map[string][]domain.CheckResult)
	for _, res := range r.Results {
		byFeature[res.Feature] = append(byFeature[res.Feature], res)
	}
	features := make([]string, 0, len(byFeature))
	for f := range byFeature {
		features = append(features, f)
	}
	sort.Strings(features)

	fmt.Fprintf(w, "MCP compliance report %s\n", r.RunID)
	fmt.Fprintf(w, "Server: %s  Spec version: %s\n", r.ServerURL, r.SpecVersion)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, f := range features {
		fmt.Fprintf(w, "\n%s\n", f)
		for _, res := range byFeature[f] {
			fmt.Fprintf(w, "  %s %-24s [%s] %s\n", glyphs[res.Outcome], res.RequirementID, res.Level, res.Description)
			if res.Reason == "" {
				continue
			}
			if verbose || res.Outcome != domain.OutcomePass {
				fmt.Fprintf(w, "      %s: %s\n", res.Outcome, res.Reason)
			}
		}
	}

	s := r.Summary
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintf(w, "Total: %d  Passed: %d  Failed: %d  Skipped: %d\n", s.Total, s.Passed, s.Failed, s.Skipped)
	fmt.Fprintf(w, "MUST failures: %d  SHOULD failures: %d\n", s.MustFailures, s.ShouldFailures)

	if s.MustFailures > 0 {
		fmt.Fprintf(w, "\n%s %d MUST requirement(s) failed:\n", glyphs[domain.OutcomeFail], s.MustFailures)
		for _, res := range r.Results {
			if res.Outcome == domain.OutcomeFail && res.Level == domain.LevelMust {
				fmt.Fprintf(w, "  - %s %s\n", res.RequirementID, res.Reason)
			}
		}
	}
	fmt.Fprintf(w, "\nOverall: %s\n", r.OverallStatus())
}
