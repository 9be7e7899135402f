package domain

import (
	"fmt"
	"strings"
)

// Level is the normative strength of a requirement
type Level string

const (
	LevelMust   Level = "MUST"
	LevelShould Level = "SHOULD"
)

// Valid reports whether the level is one of the known levels
func (l Level) Valid() bool {
	return l == LevelMust || l == LevelShould
}

// ParseLevels parses a comma separated allow-list such as "MUST,SHOULD".
// Matching is case-insensitive and blank entries are ignored.
func ParseLevels(raw string) ([]Level, error) {
	var levels []Level
	seen := make(map[Level]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		level := Level(strings.ToUpper(part))
		if !level.Valid() {
			return nil, NewValidationError("level", fmt.Sprintf("unknown level %q", part), part)
		}
		if !seen[level] {
			seen[level] = true
			levels = append(levels, level)
		}
	}
	if len(levels) == 0 {
		return nil, NewValidationError("level", "at least one level is required", raw)
	}
	return levels, nil
}

// Requirement is a single normative statement from the protocol spec
type Requirement struct {
	Feature     string `json:"feature" yaml:"feature"`
	Level       Level  `json:"level" yaml:"level"`
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// Outcome is the terminal state of a check
type Outcome string

const (
	OutcomePass    Outcome = "PASS"
	OutcomeFail    Outcome = "FAIL"
	OutcomeSkipped Outcome = "SKIPPED"
	OutcomeXFail   Outcome = "XFAIL"
	OutcomeXPass   Outcome = "XPASS"
)

// CheckResult is the recorded outcome of one conformance check
type CheckResult struct {
	Check         string  `json:"check"`
	RequirementID string  `json:"req_id"`
	Feature       string  `json:"feature"`
	Level         Level   `json:"level"`
	Outcome       Outcome `json:"outcome"`
	Description   string  `json:"description"`
	Reason        string  `json:"reason,omitempty"`
	DurationMs    float64 `json:"duration_ms"`
}

// FeatureArea returns the leading segment of a feature, e.g. "prompts" for "prompts/list"
func FeatureArea(feature string) string {
	if i := strings.Index(feature, "/"); i >= 0 {
		return feature[:i]
	}
	return feature
}
