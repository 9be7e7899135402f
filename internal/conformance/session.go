package conformance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/mcp/client"
	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
	"github.com/mcp-compliance-runner/internal/requirements"
	"github.com/sirupsen/logrus"
)

// Session is the context every check receives
type Session struct {
	Client      *client.Client
	Registry    *requirements.Registry
	Poll        domain.PollConfig
	Logger      *logrus.Logger
	SpecVersion string

	caps    *validator.Capabilities
	capsErr error
}

// NewSession creates a session over c
func NewSession(c *client.Client, registry *requirements.Registry, poll domain.PollConfig, logger *logrus.Logger) *Session {
	if poll.Attempts < 1 {
		poll.Attempts = 1
	}
	return &Session{Client: c, Registry: registry, Poll: poll, Logger: logger}
}

// Call performs one exchange; JSON-RPC errors come back as *domain.JSONRPCError
func (s *Session) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return s.Client.Call(ctx, method, params)
}

// Capabilities fetches capabilities/get once per session
func (s *Session) Capabilities(ctx context.Context) (*validator.Capabilities, error) {
	if s.caps != nil || s.capsErr != nil {
		return s.caps, s.capsErr
	}
	raw, err := s.Call(ctx, "capabilities/get", nil)
	if err == nil {
		s.caps, err = validator.ParseCapabilities(raw)
	}
	var te *domain.TransportError
	if errors.As(err, &te) {
		// a transport failure is not memoised so a later check can retry
		return nil, err
	}
	s.capsErr = err
	return s.caps, s.capsErr
}

// RequireCapability skips the calling check unless feature.flag is declared
func (s *Session) RequireCapability(ctx context.Context, feature, flag string) error {
	caps, err := s.Capabilities(ctx)
	if err != nil {
		return err
	}
	if !caps.Declares(feature, flag) {
		return Skip("server does not declare %s.%s", feature, flag)
	}
	return nil
}

func codeList(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(parts, " or ")
}

// ExpectError passes only when method fails with one of codes
func (s *Session) ExpectError(ctx context.Context, method string, params interface{}, codes ...int) error {
	res, err := s.Client.Exchange(ctx, method, params)
	if err != nil {
		return err
	}
	if res.OK() {
		return Failf("%s succeeded, expected error %s", method, codeList(codes))
	}
	for _, c := range codes {
		if res.RPCError.Code == c {
			return nil
		}
	}
	return Failf("%s returned error %d (%s), expected %s", method, res.RPCError.Code, res.RPCError.Message, codeList(codes))
}

// ExpectRawError sends payload verbatim and passes when the reply is an
// error envelope carrying one of codes
func (s *Session) ExpectRawError(ctx context.Context, payload string, codes ...int) error {
	raw, err := s.Client.SendRaw(ctx, []byte(payload))
	if err != nil {
		return err
	}
	env, err := protocol.DecodeResponse("raw", raw.Body)
	if err != nil {
		return Failf("reply to %s was not a JSON-RPC envelope (HTTP %d): %v", payload, raw.StatusCode, err)
	}
	if env.Error == nil {
		return Failf("%s was accepted, expected error %s", payload, codeList(codes))
	}
	for _, c := range codes {
		if env.Error.Code == c {
			return nil
		}
	}
	return Failf("%s was rejected with %d, expected %s", payload, env.Error.Code, codeList(codes))
}

// keysFunc extracts the identifying keys and the next cursor from a list result
type keysFunc func(raw json.RawMessage) ([]string, string, error)

func promptKeys(raw json.RawMessage) ([]string, string, error) {
	list, err := validator.PromptsList(raw)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, len(list.Prompts))
	for i, p := range list.Prompts {
		keys[i] = p.Name
	}
	return keys, list.NextCursor, nil
}

func resourceKeys(raw json.RawMessage) ([]string, string, error) {
	list, err := validator.ResourcesList(raw)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, len(list.Resources))
	for i, r := range list.Resources {
		keys[i] = r.URI
	}
	return keys, list.NextCursor, nil
}

func toolKeys(raw json.RawMessage) ([]string, string, error) {
	list, err := validator.ToolsList(raw)
	if err != nil {
		return nil, "", err
	}
	keys := make([]string, len(list.Tools))
	for i, t := range list.Tools {
		keys[i] = t.Name
	}
	return keys, list.NextCursor, nil
}

// checkPagination requests a first page, follows its cursor once and
// requires the two pages to differ. A first page without nextCursor means the
// server ignored use_pagination.
func (s *Session) checkPagination(ctx context.Context, method, field string, keys keysFunc) error {
	raw, err := s.Call(ctx, method, map[string]interface{}{"use_pagination": true})
	if err != nil {
		return err
	}
	first, next, err := keys(raw)
	if err != nil {
		return err
	}
	if next == "" {
		return Failf("%s ignored use_pagination: first page has no nextCursor", method)
	}

	raw, err = s.Call(ctx, method, map[string]interface{}{"cursor": next})
	if err != nil {
		return err
	}
	second, _, err := keys(raw)
	if err != nil {
		return err
	}
	return validator.DistinctPages(field, first, second)
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// watchList polls method a bounded number of times, validating every
// snapshot. A change is logged; no change is not a failure.
func (s *Session) watchList(ctx context.Context, method string, keys keysFunc) error {
	raw, err := s.Call(ctx, method, nil)
	if err != nil {
		return err
	}
	baseline, _, err := keys(raw)
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= s.Poll.Attempts; attempt++ {
		if err := sleep(ctx, s.Poll.Interval); err != nil {
			return err
		}
		raw, err := s.Call(ctx, method, nil)
		if err != nil {
			return err
		}
		current, _, err := keys(raw)
		if err != nil {
			return fmt.Errorf("snapshot %d: %w", attempt, err)
		}
		if !sameKeys(baseline, current) {
			s.Logger.WithFields(logrus.Fields{
				"method":  method,
				"attempt": attempt,
				"before":  len(baseline),
				"after":   len(current),
			}).Info("List change observed")
			return nil
		}
	}

	s.Logger.WithFields(logrus.Fields{
		"method":   method,
		"attempts": s.Poll.Attempts,
	}).Debug("No list change observed")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// listPrompts returns the first page of prompts/list
func (s *Session) listPrompts(ctx context.Context) ([]validator.Prompt, error) {
	raw, err := s.Call(ctx, "prompts/list", nil)
	if err != nil {
		return nil, err
	}
	list, err := validator.PromptsList(raw)
	if err != nil {
		return nil, err
	}
	return list.Prompts, nil
}

// promptWithArguments returns the first prompt declaring arguments
func (s *Session) promptWithArguments(ctx context.Context) (validator.Prompt, error) {
	prompts, err := s.listPrompts(ctx)
	if err != nil {
		return validator.Prompt{}, err
	}
	for _, p := range prompts {
		if len(p.Arguments) > 0 {
			return p, nil
		}
	}
	return validator.Prompt{}, Skip("no prompt declares arguments")
}

func (s *Session) listResources(ctx context.Context) ([]validator.Resource, error) {
	raw, err := s.Call(ctx, "resources/list", nil)
	if err != nil {
		return nil, err
	}
	list, err := validator.ResourcesList(raw)
	if err != nil {
		return nil, err
	}
	return list.Resources, nil
}

func (s *Session) listTemplates(ctx context.Context) ([]validator.ResourceTemplate, error) {
	raw, err := s.Call(ctx, "resources/templates/list", nil)
	if err != nil {
		return nil, err
	}
	list, err := validator.ResourceTemplatesList(raw)
	if err != nil {
		return nil, err
	}
	return list.ResourceTemplates, nil
}

func (s *Session) listTools(ctx context.Context) ([]validator.Tool, error) {
	raw, err := s.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	list, err := validator.ToolsList(raw)
	if err != nil {
		return nil, err
	}
	return list.Tools, nil
}

// requiredArguments fills every required prompt argument with value
func requiredArguments(p validator.Prompt, value string) map[string]interface{} {
	args := map[string]interface{}{}
	for _, name := range p.RequiredArguments() {
		args[name] = value
	}
	return args
}
