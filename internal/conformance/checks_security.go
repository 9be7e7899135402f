package conformance

import (
	"context"
	"strings"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
)

const oversizedArgumentBytes = 100 * 1024

// echoTool locates a tool that reflects a string argument back
func (s *Session) echoTool(ctx context.Context) (string, string, error) {
	tools, err := s.listTools(ctx)
	if err != nil {
		return "", "", err
	}

	var candidate *validator.Tool
	for i := range tools {
		if tools[i].Name == "echo_tool" {
			candidate = &tools[i]
			break
		}
	}
	if candidate == nil {
		for i := range tools {
			if strings.Contains(strings.ToLower(tools[i].Name), "echo") {
				candidate = &tools[i]
				break
			}
		}
	}
	if candidate == nil {
		return "", "", Skip("server lists no echo tool")
	}

	props, _ := candidate.InputSchema["properties"].(map[string]interface{})
	required, _ := candidate.InputSchema["required"].([]interface{})
	for _, r := range required {
		name, _ := r.(string)
		if prop, ok := props[name].(map[string]interface{}); ok && prop["type"] == "string" {
			return candidate.Name, name, nil
		}
	}
	return "", "", Skip("tool %s has no required string argument", candidate.Name)
}

// echo calls the echo tool with value and returns its text output
func (s *Session) echo(ctx context.Context, value interface{}) (string, error) {
	tool, arg, err := s.echoTool(ctx)
	if err != nil {
		return "", err
	}
	result, err := s.callTool(ctx, tool, map[string]interface{}{arg: value})
	if err != nil {
		return "", err
	}
	return validator.TextOf(result.Content), nil
}

func checkScriptTags(ctx context.Context, s *Session) error {
	out, err := s.echo(ctx, "<script>alert('XSS')</script>")
	if err != nil {
		return err
	}
	if strings.Contains(strings.ToLower(out), "<script>") {
		return Failf("output contains an unescaped script tag: %q", out)
	}
	return nil
}

func checkEventHandlers(ctx context.Context, s *Session) error {
	out, err := s.echo(ctx, `<img src="x" onerror="alert('XSS')">`)
	if err != nil {
		return err
	}
	if strings.Contains(strings.ToLower(out), "onerror=") {
		return Failf("output contains an event handler attribute: %q", out)
	}
	return nil
}

func checkPromptInjection(ctx context.Context, s *Session) error {
	prompt, err := s.promptWithArguments(ctx)
	if err != nil {
		return err
	}
	args := requiredArguments(prompt, "example value")
	args[prompt.Arguments[0].Name] = "'; DROP TABLE users; --"

	res, err := s.Client.Exchange(ctx, "prompts/get", map[string]interface{}{"name": prompt.Name, "arguments": args})
	if err != nil {
		return err
	}
	if !res.OK() {
		if res.RPCError.Code == protocol.InvalidParams {
			return nil
		}
		return Failf("injection payload rejected with %d, expected a result or %d", res.RPCError.Code, protocol.InvalidParams)
	}

	result, err := validator.PromptGet(res.Value)
	if err != nil {
		return err
	}
	var text strings.Builder
	for _, m := range result.Messages {
		text.WriteString(validator.TextOf([]validator.Content{m.Content}))
	}
	lower := strings.ToLower(text.String())
	for _, leak := range []string{"sql", "syntax error", "database"} {
		if strings.Contains(lower, leak) {
			return Failf("prompt output leaks %q: %q", leak, text.String())
		}
	}
	return nil
}

func checkUnicodePreserved(ctx context.Context, s *Session) error {
	const emoji = "Hello 👋 World 🌍"
	out, err := s.echo(ctx, emoji)
	if err != nil {
		return err
	}
	if !strings.Contains(out, emoji) {
		return Failf("output %q does not preserve %q", out, emoji)
	}
	return nil
}

// acceptToolOutcome passes a valid result or an error whose code is allowed.
// An empty codes list allows any JSON-RPC error.
func (s *Session) acceptToolOutcome(ctx context.Context, tool string, args map[string]interface{}, label string, codes ...int) error {
	res, err := s.Client.Exchange(ctx, "tools/call", map[string]interface{}{"name": tool, "arguments": args})
	if err != nil {
		return Failf("%s broke the exchange: %v", label, err)
	}
	if !res.OK() {
		if len(codes) == 0 {
			return nil
		}
		for _, c := range codes {
			if res.RPCError.Code == c {
				return nil
			}
		}
		return Failf("%s rejected with %d, expected %s", label, res.RPCError.Code, codeList(codes))
	}
	if _, err := validator.ToolCall(res.Value); err != nil {
		return Failf("%s produced an invalid result: %v", label, err)
	}
	return nil
}

func checkMalformedArguments(ctx context.Context, s *Session) error {
	tool, arg, err := s.echoTool(ctx)
	if err != nil {
		return err
	}

	cases := []struct {
		label string
		args  map[string]interface{}
	}{
		{"empty string", map[string]interface{}{arg: ""}},
		{"long string", map[string]interface{}{arg: strings.Repeat("a", 1000)}},
		{"unicode", map[string]interface{}{arg: "Unicode: 你好, 안녕하세요, Привет"}},
		{"special characters", map[string]interface{}{arg: "Special chars: !@#$%^&*()"}},
		{"null byte", map[string]interface{}{arg: "test\x00null"}},
		{"sql injection", map[string]interface{}{arg: "' OR 1=1; --"}},
		{"null value", map[string]interface{}{arg: nil}},
		{"integer value", map[string]interface{}{arg: 12345}},
		{"extra argument", map[string]interface{}{arg: "test", "extra_arg": "should be ignored"}},
	}
	for _, tc := range cases {
		if err := s.acceptToolOutcome(ctx, tool, tc.args, tc.label, protocol.InvalidParams); err != nil {
			return err
		}
	}
	return nil
}

func checkOversizedArguments(ctx context.Context, s *Session) error {
	tool, arg, err := s.echoTool(ctx)
	if err != nil {
		return err
	}
	return s.acceptToolOutcome(ctx, tool, map[string]interface{}{arg: strings.Repeat("x", oversizedArgumentBytes)}, "oversized argument")
}
