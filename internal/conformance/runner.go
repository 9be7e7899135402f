// Package conformance runs one check per catalogued requirement against a
// server and records exactly one CheckResult for each.
package conformance

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/requirements"
	"github.com/sirupsen/logrus"
)

// CheckFunc exercises a server for one requirement. A nil error is a pass;
// Skip and Failf build the other terminal outcomes.
type CheckFunc func(ctx context.Context, s *Session) error

// Check binds an executable assertion to a requirement id
type Check struct {
	Name          string
	RequirementID string
	Run           CheckFunc
	// ExpectFail marks a known failure: FAIL is recorded as XFAIL and PASS as XPASS
	ExpectFail bool
}

// SkipError reports an unmet precondition
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip ends a check without failing it
func Skip(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// AssertionError is an explicit check failure
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// Failf fails a check with a formatted message
func Failf(format string, args ...interface{}) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// Options selects what a run executes
type Options struct {
	SpecVersion string
	Levels      []domain.Level
	Features    []string
}

// Runner owns the results of one run
type Runner struct {
	registry *requirements.Registry
	session  *Session
	logger   *logrus.Logger
	opts     Options
	checks   map[string]Check
	results  []domain.CheckResult
}

// NewRunner creates a runner with the built-in check catalog
func NewRunner(registry *requirements.Registry, session *Session, opts Options, logger *logrus.Logger) *Runner {
	r := &Runner{
		registry: registry,
		session:  session,
		logger:   logger,
		opts:     opts,
		checks:   make(map[string]Check),
	}
	for _, c := range Catalog() {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the check for c.RequirementID
func (r *Runner) Register(c Check) {
	r.checks[c.RequirementID] = c
}

// SpecVersion returns the version the run targets
func (r *Runner) SpecVersion() string {
	if r.opts.SpecVersion == "" {
		return r.registry.Latest()
	}
	return r.opts.SpecVersion
}

// Run executes every requirement of the selected version in catalog order.
// Only an unsupported version is returned as an error; everything that goes
// wrong while talking to the server becomes a result.
func (r *Runner) Run(ctx context.Context) ([]domain.CheckResult, error) {
	version := r.SpecVersion()
	reqs, err := r.registry.RequirementsFor(version)
	if err != nil {
		return nil, err
	}
	r.session.SpecVersion = version

	r.logger.WithFields(logrus.Fields{
		"spec_version": version,
		"requirements": len(reqs),
		"levels":       r.opts.Levels,
		"features":     r.opts.Features,
	}).Info("Starting compliance run")

	r.results = make([]domain.CheckResult, 0, len(reqs))
	for _, req := range reqs {
		r.results = append(r.results, r.execute(ctx, req))
	}
	return r.Results(), nil
}

// Results returns a copy of the results recorded so far
func (r *Runner) Results() []domain.CheckResult {
	out := make([]domain.CheckResult, len(r.results))
	copy(out, r.results)
	return out
}

func (r *Runner) levelSelected(level domain.Level) bool {
	if len(r.opts.Levels) == 0 {
		return true
	}
	for _, l := range r.opts.Levels {
		if l == level {
			return true
		}
	}
	return false
}

func (r *Runner) featureSelected(feature string) bool {
	if len(r.opts.Features) == 0 {
		return true
	}
	for _, f := range r.opts.Features {
		f = strings.TrimSpace(f)
		if f == feature || f == domain.FeatureArea(feature) {
			return true
		}
	}
	return false
}

func (r *Runner) execute(ctx context.Context, req domain.Requirement) domain.CheckResult {
	check, ok := r.checks[req.ID]
	result := domain.CheckResult{
		Check:         check.Name,
		RequirementID: req.ID,
		Feature:       req.Feature,
		Level:         req.Level,
		Description:   req.Description,
	}

	switch {
	case !r.levelSelected(req.Level):
		result.Outcome = domain.OutcomeSkipped
		result.Reason = fmt.Sprintf("level %s not selected", req.Level)
	case !r.featureSelected(req.Feature):
		result.Outcome = domain.OutcomeSkipped
		result.Reason = fmt.Sprintf("feature %s not selected", req.Feature)
	case !ok:
		result.Check = strings.ToLower(strings.ReplaceAll(req.ID, "-", "_"))
		result.Outcome = domain.OutcomeSkipped
		result.Reason = "no check registered for this requirement"
	default:
		start := time.Now()
		err := r.invoke(ctx, check)
		result.DurationMs = float64(time.Since(start).Microseconds()) / 1000
		result.Outcome, result.Reason = classify(check, err)
	}

	entry := r.logger.WithFields(logrus.Fields{
		"check":   result.Check,
		"req_id":  result.RequirementID,
		"level":   result.Level,
		"outcome": result.Outcome,
	})
	if result.Reason != "" {
		entry = entry.WithField("reason", result.Reason)
	}
	if result.Outcome == domain.OutcomeFail {
		entry.Warn("Check failed")
	} else {
		entry.Info("Check finished")
	}
	return result
}

// invoke runs one check, turning a panic into an error
func (r *Runner) invoke(ctx context.Context, check Check) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithFields(logrus.Fields{
				"check": check.Name,
				"stack": string(debug.Stack()),
			}).Error("Check panicked")
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	r.logger.WithField("check", check.Name).Debug("Running check")
	return check.Run(ctx, r.session)
}

func classify(check Check, err error) (domain.Outcome, string) {
	var skip *SkipError
	switch {
	case err == nil && check.ExpectFail:
		return domain.OutcomeXPass, "passed although marked as expected to fail"
	case err == nil:
		return domain.OutcomePass, ""
	case errors.As(err, &skip):
		return domain.OutcomeSkipped, skip.Reason
	case check.ExpectFail:
		return domain.OutcomeXFail, err.Error()
	default:
		return domain.OutcomeFail, err.Error()
	}
}
