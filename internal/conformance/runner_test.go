package conformance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/mcp/client"
	"github.com/mcp-compliance-runner/internal/mockserver"
	"github.com/mcp-compliance-runner/internal/report"
	"github.com/mcp-compliance-runner/internal/requirements"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() domain.MockConfig {
	return domain.MockConfig{
		Host:                 "127.0.0.1",
		PageSize:             2,
		RateLimitPerMinute:   30,
		SlowDelay:            100 * time.Millisecond,
		SubscriptionCapacity: 64,
	}
}

type harness struct {
	mock   *mockserver.Server
	url    string
	runner *Runner
}

func newHarness(t *testing.T, opts Options, wrap func(http.Handler) http.Handler) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()

	mock, err := mockserver.NewServer(mockConfig(), logger)
	require.NoError(t, err)

	handler := mock.Handler()
	if wrap != nil {
		handler = wrap(handler)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &harness{mock: mock, url: ts.URL, runner: newRunnerFor(t, ts.URL, opts)}
}

func newRunnerFor(t *testing.T, url string, opts Options) *Runner {
	t.Helper()
	logger, _ := test.NewNullLogger()

	registry, err := requirements.Load()
	require.NoError(t, err)

	c := client.New(client.NewHTTPTransport(url, nil), client.WithLogger(logger), client.WithTimeout(5*time.Second))
	t.Cleanup(func() { c.Close() })

	session := NewSession(c, registry, domain.PollConfig{Attempts: 2, Interval: 10 * time.Millisecond}, logger)
	return NewRunner(registry, session, opts, logger)
}

func byRequirement(results []domain.CheckResult) map[string]domain.CheckResult {
	out := make(map[string]domain.CheckResult, len(results))
	for _, r := range results {
		out[r.RequirementID] = r
	}
	return out
}

func failures(results []domain.CheckResult) []string {
	var out []string
	for _, r := range results {
		if r.Outcome == domain.OutcomeFail {
			out = append(out, fmt.Sprintf("%s: %s", r.RequirementID, r.Reason))
		}
	}
	return out
}

func TestRun_AgainstMockServer(t *testing.T) {
	h := newHarness(t, Options{}, nil)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	registry, err := requirements.Load()
	require.NoError(t, err)
	reqs, err := registry.RequirementsFor(registry.Latest())
	require.NoError(t, err)

	require.Len(t, results, len(reqs))
	assert.Empty(t, failures(results))

	for i, req := range reqs {
		assert.Equal(t, req.ID, results[i].RequirementID, "results follow catalog order")
		assert.NotEmpty(t, results[i].Check)
	}

	got := byRequirement(results)
	assert.Equal(t, domain.OutcomePass, got["TOOLS-CALL-5"].Outcome, got["TOOLS-CALL-5"].Reason)
	assert.Equal(t, domain.OutcomePass, got["PROMPTS-LIST-3"].Outcome, got["PROMPTS-LIST-3"].Reason)
	assert.Equal(t, domain.OutcomePass, got["RESOURCES-SUBSCRIBE-2"].Outcome, got["RESOURCES-SUBSCRIBE-2"].Reason)
	assert.Equal(t, domain.OutcomePass, got["COMPLETION-1"].Outcome, got["COMPLETION-1"].Reason)
	assert.Equal(t, domain.OutcomePass, got["SECURITY-1"].Outcome, got["SECURITY-1"].Reason)
	assert.Equal(t, domain.OutcomePass, got["JSONRPC-5"].Outcome, got["JSONRPC-5"].Reason)
	assert.Equal(t, results, h.runner.Results())
}

func TestRun_OlderSpecVersion(t *testing.T) {
	h := newHarness(t, Options{SpecVersion: "2024-11-05"}, nil)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failures(results))

	_, present := byRequirement(results)["TOOLS-LIST-5"]
	assert.False(t, present)
}

func TestRun_ListChurn(t *testing.T) {
	h := newHarness(t, Options{Features: []string{"prompts/list_changed", "tools/list_changed"}}, nil)
	churn := true
	h.mock.State().Apply(mockserver.AdminConfig{ListChurn: &churn})

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failures(results))

	got := byRequirement(results)
	assert.Equal(t, domain.OutcomePass, got["PROMPTS-LIST-CHANGED-2"].Outcome)
	assert.Equal(t, domain.OutcomePass, got["TOOLS-LIST-CHANGED-2"].Outcome)
}

func TestRun_CapabilityWithdrawn(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	h.mock.Capabilities().UpdateServerCapability("completion", nil)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failures(results))

	got := byRequirement(results)
	for _, id := range []string{"COMPLETION-1", "COMPLETION-2", "COMPLETION-3", "COMPLETION-4"} {
		assert.Equal(t, domain.OutcomeSkipped, got[id].Outcome, id)
		assert.Contains(t, got[id].Reason, "completion.complete")
	}
}

func TestRun_LevelFilter(t *testing.T) {
	h := newHarness(t, Options{Levels: []domain.Level{domain.LevelMust}}, nil)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	for _, r := range results {
		if r.Level == domain.LevelShould {
			assert.Equal(t, domain.OutcomeSkipped, r.Outcome, r.RequirementID)
			assert.Equal(t, "level SHOULD not selected", r.Reason)
			assert.Zero(t, r.DurationMs)
		} else {
			assert.NotEqual(t, domain.OutcomeFail, r.Outcome, "%s: %s", r.RequirementID, r.Reason)
		}
	}
}

func TestRun_FeatureFilter(t *testing.T) {
	h := newHarness(t, Options{Features: []string{"prompts", "spec/version"}}, nil)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	for _, r := range results {
		selected := strings.HasPrefix(r.Feature, "prompts/") || r.Feature == "spec/version"
		if selected {
			assert.NotEqual(t, domain.OutcomeSkipped, r.Outcome, r.RequirementID)
		} else {
			assert.Equal(t, domain.OutcomeSkipped, r.Outcome, r.RequirementID)
			assert.Equal(t, fmt.Sprintf("feature %s not selected", r.Feature), r.Reason)
		}
	}
}

func TestRun_UnsupportedVersion(t *testing.T) {
	h := newHarness(t, Options{SpecVersion: "1999-01-01"}, nil)

	results, err := h.runner.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, results)

	var verr *domain.UnsupportedVersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "1999-01-01", verr.Version)
	assert.Contains(t, verr.Supported, "2025-03-26")
}

func TestRun_CheckOverrides(t *testing.T) {
	h := newHarness(t, Options{Features: []string{"spec", "jsonrpc"}}, nil)
	h.runner.Register(Check{
		Name:          "spec_version_panics",
		RequirementID: "SPEC-VERSION-1",
		Run: func(ctx context.Context, s *Session) error {
			var m map[string]int
			m["boom"] = 1
			return nil
		},
	})
	h.runner.Register(Check{
		Name:          "known_failure",
		RequirementID: "JSONRPC-1",
		ExpectFail:    true,
		Run: func(ctx context.Context, s *Session) error {
			return Failf("server accepts jsonrpc 1.0")
		},
	})
	h.runner.Register(Check{
		Name:          "unexpected_pass",
		RequirementID: "JSONRPC-2",
		ExpectFail:    true,
		Run:           func(ctx context.Context, s *Session) error { return nil },
	})
	h.runner.Register(Check{
		Name:          "precondition",
		RequirementID: "JSONRPC-3",
		Run: func(ctx context.Context, s *Session) error {
			return Skip("needs %s", "something")
		},
	})

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	got := byRequirement(results)

	assert.Equal(t, domain.OutcomeFail, got["SPEC-VERSION-1"].Outcome)
	assert.True(t, strings.HasPrefix(got["SPEC-VERSION-1"].Reason, "panic: "), got["SPEC-VERSION-1"].Reason)
	assert.Equal(t, domain.OutcomeXFail, got["JSONRPC-1"].Outcome)
	assert.Equal(t, "server accepts jsonrpc 1.0", got["JSONRPC-1"].Reason)
	assert.Equal(t, domain.OutcomeXPass, got["JSONRPC-2"].Outcome)
	assert.Equal(t, domain.OutcomeSkipped, got["JSONRPC-3"].Outcome)
	assert.Equal(t, "needs something", got["JSONRPC-3"].Reason)
	assert.Equal(t, domain.OutcomePass, got["JSONRPC-6"].Outcome)
}

func TestRun_MissingCheck(t *testing.T) {
	h := newHarness(t, Options{Features: []string{"spec"}}, nil)
	delete(h.runner.checks, "SPEC-FEATURES-1")

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	got := byRequirement(results)["SPEC-FEATURES-1"]
	assert.Equal(t, domain.OutcomeSkipped, got.Outcome)
	assert.Equal(t, "no check registered for this requirement", got.Reason)
	assert.Equal(t, "spec_features_1", got.Check)
}

func TestRun_ServerUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	runner := newRunnerFor(t, url, Options{})
	results, err := runner.Run(context.Background())
	require.NoError(t, err)

	got := byRequirement(results)
	assert.Equal(t, domain.OutcomePass, got["SPEC-VERSION-1"].Outcome)
	assert.Equal(t, domain.OutcomePass, got["SPEC-FEATURES-1"].Outcome)
	assert.Equal(t, domain.OutcomeFail, got["PROMPTS-LIST-1"].Outcome)
	assert.Contains(t, got["PROMPTS-LIST-1"].Reason, "connection")
	assert.Equal(t, domain.OutcomeFail, got["TOOLS-LIST-1"].Outcome)
}

func TestRun_NonCompliantServer(t *testing.T) {
	// answers every request with an empty result object
	wrap := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
		})
	}
	h := newHarness(t, Options{Features: []string{"prompts", "jsonrpc", "tools/list"}}, wrap)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	got := byRequirement(results)

	assert.Equal(t, domain.OutcomeFail, got["PROMPTS-LIST-1"].Outcome)
	assert.Contains(t, got["PROMPTS-LIST-1"].Reason, "prompts")
	assert.Equal(t, domain.OutcomeFail, got["PROMPTS-GET-1"].Outcome)
	assert.Contains(t, got["PROMPTS-GET-1"].Reason, "succeeded")
	assert.Equal(t, domain.OutcomeFail, got["JSONRPC-1"].Outcome)
	assert.Equal(t, domain.OutcomeFail, got["JSONRPC-6"].Outcome)
	assert.Equal(t, domain.OutcomeFail, got["TOOLS-LIST-1"].Outcome)
}

// interceptRPC answers the JSON-RPC requests for which reply returns true and
// forwards everything else to the wrapped handler
func interceptRPC(reply func(req map[string]interface{}) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var req map[string]interface{}
			if json.Unmarshal(body, &req) == nil {
				if out, ok := reply(req); ok {
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(out))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func promptsPage(id interface{}, cursor string, names ...string) string {
	prompts := make([]map[string]interface{}, len(names))
	for i, n := range names {
		prompts[i] = map[string]interface{}{"name": n, "description": "fixed prompt"}
	}
	result := map[string]interface{}{"prompts": prompts}
	if cursor != "" {
		result["nextCursor"] = cursor
	}
	data, _ := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": result})
	return string(data)
}

func TestRun_PaginationRepeatsPageFails(t *testing.T) {
	// every page of prompts/list is the same two prompts
	wrap := interceptRPC(func(req map[string]interface{}) (string, bool) {
		if req["method"] != "prompts/list" {
			return "", false
		}
		return promptsPage(req["id"], "again", "alpha", "beta"), true
	})
	h := newHarness(t, Options{Features: []string{"prompts/list"}}, wrap)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	got := byRequirement(results)["PROMPTS-LIST-3"]
	assert.Equal(t, domain.OutcomeFail, got.Outcome)
	assert.Contains(t, got.Reason, "next page repeats the previous page")
}

func TestRun_NoCursorFails(t *testing.T) {
	// prompts/list ignores use_pagination and returns everything at once
	wrap := interceptRPC(func(req map[string]interface{}) (string, bool) {
		if req["method"] != "prompts/list" {
			return "", false
		}
		return promptsPage(req["id"], "", "alpha", "beta", "gamma"), true
	})
	h := newHarness(t, Options{Features: []string{"prompts/list"}}, wrap)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	got := byRequirement(results)
	assert.Equal(t, domain.OutcomePass, got["PROMPTS-LIST-1"].Outcome, got["PROMPTS-LIST-1"].Reason)
	assert.Equal(t, domain.OutcomeFail, got["PROMPTS-LIST-3"].Outcome)
	assert.Equal(t, "prompts/list ignored use_pagination: first page has no nextCursor", got["PROMPTS-LIST-3"].Reason)
}

func TestRun_MustOnlyIgnoresShouldFailure(t *testing.T) {
	// accepts a jsonrpc 1.0 request, which JSONRPC-1 (SHOULD) rejects
	wrap := interceptRPC(func(req map[string]interface{}) (string, bool) {
		if req["jsonrpc"] != "1.0" {
			return "", false
		}
		return `{"jsonrpc":"2.0","id":1,"result":{"prompts":[]}}`, true
	})

	registry, err := requirements.Load()
	require.NoError(t, err)

	all := newHarness(t, Options{}, wrap)
	results, err := all.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFail, byRequirement(results)["JSONRPC-1"].Outcome)
	rep := report.Finalize(results, report.Meta{SpecVersion: all.runner.SpecVersion(), ServerURL: all.url}, registry)
	assert.Equal(t, 1, rep.Summary.ShouldFailures)
	assert.Zero(t, rep.Summary.MustFailures)
	assert.Equal(t, 0, rep.ExitCode())

	mustOnly := newHarness(t, Options{Levels: []domain.Level{domain.LevelMust}}, wrap)
	results, err = mustOnly.runner.Run(context.Background())
	require.NoError(t, err)

	got := byRequirement(results)["JSONRPC-1"]
	assert.Equal(t, domain.OutcomeSkipped, got.Outcome)
	assert.Equal(t, "level SHOULD not selected", got.Reason)

	rep = report.Finalize(results, report.Meta{SpecVersion: mustOnly.runner.SpecVersion(), ServerURL: mustOnly.url}, registry)
	assert.Zero(t, rep.Summary.ShouldFailures)
	assert.Zero(t, rep.Summary.MustFailures)
	assert.Equal(t, report.StatusPass, rep.OverallStatus())
	assert.Equal(t, 0, rep.ExitCode())
}

func TestRun_CapabilitiesWithScalarMembers(t *testing.T) {
	wrap := interceptRPC(func(req map[string]interface{}) (string, bool) {
		if req["method"] != "capabilities/get" {
			return "", false
		}
		return `{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2025-03-26","prompts":{"listChanged":true}}}`, true
	})
	h := newHarness(t, Options{Features: []string{"completion"}}, wrap)

	results, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failures(results))

	got := byRequirement(results)
	for _, id := range []string{"COMPLETION-1", "COMPLETION-2", "COMPLETION-3", "COMPLETION-4"} {
		assert.Equal(t, domain.OutcomeSkipped, got[id].Outcome, id)
		assert.Contains(t, got[id].Reason, "completion.complete")
	}
}
