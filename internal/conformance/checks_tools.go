package conformance

import (
	"context"
	"errors"
	"strings"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
)

// rateLimitProbes bounds how many calls are spent looking for a rate limit
const rateLimitProbes = 50

func checkToolsList(ctx context.Context, s *Session) error {
	_, err := s.listTools(ctx)
	return err
}

func checkToolsPagination(ctx context.Context, s *Session) error {
	return s.checkPagination(ctx, "tools/list", "tools", toolKeys)
}

func checkToolsInvalidCursor(ctx context.Context, s *Session) error {
	return s.ExpectError(ctx, "tools/list", map[string]interface{}{"cursor": "invalid_cursor"}, protocol.InvalidParams)
}

func checkToolsListStable(ctx context.Context, s *Session) error {
	var snapshots [2][]string
	for i := range snapshots {
		raw, err := s.Call(ctx, "tools/list", nil)
		if err != nil {
			return err
		}
		keys, _, err := toolKeys(raw)
		if err != nil {
			return err
		}
		snapshots[i] = keys
	}
	if !sameKeys(snapshots[0], snapshots[1]) {
		return Failf("consecutive tools/list calls returned %v and %v", snapshots[0], snapshots[1])
	}
	return nil
}

func checkToolsInputSchemas(ctx context.Context, s *Session) error {
	tools, err := s.listTools(ctx)
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		return Skip("server lists no tools")
	}
	for _, t := range tools {
		if _, err := validator.CompileInputSchema(t.Name, t.InputSchema); err != nil {
			return Failf("invalid inputSchema: %v", err)
		}
	}
	return nil
}

func (s *Session) callTool(ctx context.Context, name string, args map[string]interface{}) (*validator.ToolCallResult, error) {
	raw, err := s.Call(ctx, "tools/call", map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		return nil, err
	}
	return validator.ToolCall(raw)
}

func checkToolsCall(ctx context.Context, s *Session) error {
	tools, err := s.listTools(ctx)
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		return Skip("server lists no tools")
	}
	tool := tools[0]
	if _, err := s.callTool(ctx, tool.Name, validator.SampleArguments(tool.InputSchema)); err != nil {
		return err
	}
	return nil
}

func hasRequiredProperties(schema map[string]interface{}) bool {
	required, _ := schema["required"].([]interface{})
	return len(required) > 0
}

func checkToolsCallInvalidParams(ctx context.Context, s *Session) error {
	if err := s.ExpectError(ctx, "tools/call", map[string]interface{}{
		"name":      "nonexistent_tool_for_compliance",
		"arguments": map[string]interface{}{},
	}, protocol.InvalidParams); err != nil {
		return err
	}

	tools, err := s.listTools(ctx)
	if err != nil {
		return err
	}
	for _, t := range tools {
		if hasRequiredProperties(t.InputSchema) {
			return s.ExpectError(ctx, "tools/call", map[string]interface{}{
				"name":      t.Name,
				"arguments": map[string]interface{}{},
			}, protocol.InvalidParams)
		}
	}
	return nil
}

// errorTool finds a tool whose name advertises error behaviour and fills
// every required property with a value asking it to fail
func (s *Session) errorTool(ctx context.Context) (validator.Tool, map[string]interface{}, error) {
	tools, err := s.listTools(ctx)
	if err != nil {
		return validator.Tool{}, nil, err
	}
	for _, t := range tools {
		if !strings.Contains(strings.ToLower(t.Name), "error") {
			continue
		}
		args := validator.SampleArguments(t.InputSchema)
		for k, v := range args {
			if _, ok := v.(string); ok {
				args[k] = "trigger error"
			}
		}
		return t, args, nil
	}
	return validator.Tool{}, nil, Skip("server lists no error-producing tool")
}

func checkToolsErrorReporting(ctx context.Context, s *Session) error {
	tool, args, err := s.errorTool(ctx)
	if err != nil {
		return err
	}
	result, err := s.callTool(ctx, tool.Name, args)
	if err != nil {
		return err
	}
	if !result.IsError {
		return Failf("tool %s did not set isError", tool.Name)
	}
	if !result.HasText() {
		return Failf("tool %s reported an error without a text diagnostic", tool.Name)
	}
	text := strings.ToLower(validator.TextOf(result.Content))
	for _, word := range []string{"error", "fail", "exception"} {
		if strings.Contains(text, word) {
			return nil
		}
	}
	return Failf("tool %s error text %q does not describe a failure", tool.Name, text)
}

func checkToolsErrorContent(ctx context.Context, s *Session) error {
	tool, args, err := s.errorTool(ctx)
	if err != nil {
		return err
	}
	result, err := s.callTool(ctx, tool.Name, args)
	if err != nil {
		return err
	}
	if !result.IsError {
		return Skip("tool %s did not report an error", tool.Name)
	}
	if len(result.Content) == 0 {
		return Failf("tool %s error result has no content", tool.Name)
	}
	return nil
}

// rateLimitTarget prefers a calculator and avoids tools other checks rely on
func rateLimitTarget(tools []validator.Tool) (validator.Tool, bool) {
	for _, t := range tools {
		if strings.Contains(strings.ToLower(t.Name), "calculator") {
			return t, true
		}
	}
	for _, t := range tools {
		name := strings.ToLower(t.Name)
		if !strings.Contains(name, "echo") && !strings.Contains(name, "error") && !strings.Contains(name, "admin") {
			return t, true
		}
	}
	return validator.Tool{}, false
}

func checkToolsRateLimit(ctx context.Context, s *Session) error {
	tools, err := s.listTools(ctx)
	if err != nil {
		return err
	}
	tool, ok := rateLimitTarget(tools)
	if !ok {
		return Skip("no tool suitable for rate limit probing")
	}

	args := validator.SampleArguments(tool.InputSchema)
	for i := 1; i <= rateLimitProbes; i++ {
		_, err := s.Call(ctx, "tools/call", map[string]interface{}{"name": tool.Name, "arguments": args})
		var rpcErr *domain.JSONRPCError
		switch {
		case err == nil:
			continue
		case errors.As(err, &rpcErr) && rpcErr.Code == protocol.RateLimited:
			s.Logger.WithField("calls", i).Debug("Rate limit observed")
			return nil
		case errors.As(err, &rpcErr):
			return Failf("call %d to %s was rejected with %d, expected %d", i, tool.Name, rpcErr.Code, protocol.RateLimited)
		default:
			return err
		}
	}
	return Skip("no rate limiting observed after %d calls to %s", rateLimitProbes, tool.Name)
}

func checkToolsListChangedCapability(ctx context.Context, s *Session) error {
	return s.RequireCapability(ctx, "tools", "listChanged")
}

func checkToolsListChanges(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "tools", "listChanged"); err != nil {
		return err
	}
	return s.watchList(ctx, "tools/list", toolKeys)
}
