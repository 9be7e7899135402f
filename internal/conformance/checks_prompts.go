package conformance

import (
	"context"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
)

// maxPromptsRendered bounds how many listed prompts are fetched
const maxPromptsRendered = 10

func checkPromptsList(ctx context.Context, s *Session) error {
	_, err := s.listPrompts(ctx)
	return err
}

func checkPromptsInvalidCursor(ctx context.Context, s *Session) error {
	return s.ExpectError(ctx, "prompts/list", map[string]interface{}{"cursor": "invalid_cursor"}, protocol.InvalidParams)
}

func checkPromptsPagination(ctx context.Context, s *Session) error {
	return s.checkPagination(ctx, "prompts/list", "prompts", promptKeys)
}

func checkPromptsUnknownName(ctx context.Context, s *Session) error {
	return s.ExpectError(ctx, "prompts/get", map[string]interface{}{
		"name":      "nonexistent_prompt_for_compliance",
		"arguments": map[string]interface{}{},
	}, protocol.InvalidParams)
}

func checkPromptsMissingArgument(ctx context.Context, s *Session) error {
	prompts, err := s.listPrompts(ctx)
	if err != nil {
		return err
	}
	for _, p := range prompts {
		if len(p.RequiredArguments()) > 0 {
			return s.ExpectError(ctx, "prompts/get", map[string]interface{}{
				"name":      p.Name,
				"arguments": map[string]interface{}{},
			}, protocol.InvalidParams)
		}
	}
	return Skip("no prompt declares a required argument")
}

func checkPromptsMessageStructure(ctx context.Context, s *Session) error {
	prompts, err := s.listPrompts(ctx)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return Skip("server lists no prompts")
	}
	if len(prompts) > maxPromptsRendered {
		prompts = prompts[:maxPromptsRendered]
	}

	for _, p := range prompts {
		raw, err := s.Call(ctx, "prompts/get", map[string]interface{}{
			"name":      p.Name,
			"arguments": requiredArguments(p, "example value"),
		})
		if err != nil {
			return err
		}
		if _, err := validator.PromptGet(raw); err != nil {
			return Failf("prompt %s: %v", p.Name, err)
		}
	}
	return nil
}

// acceptPromptOrInvalidParams passes a well-formed prompt or a -32602 rejection
func (s *Session) acceptPromptOrInvalidParams(ctx context.Context, params map[string]interface{}, label string) error {
	res, err := s.Client.Exchange(ctx, "prompts/get", params)
	if err != nil {
		return err
	}
	if !res.OK() {
		if res.RPCError.Code != protocol.InvalidParams {
			return Failf("%s rejected with %d, expected %d", label, res.RPCError.Code, protocol.InvalidParams)
		}
		return nil
	}
	if _, err := validator.PromptGet(res.Value); err != nil {
		return Failf("%s accepted with an invalid result: %v", label, err)
	}
	return nil
}

func checkPromptsArgumentTypes(ctx context.Context, s *Session) error {
	prompt, err := s.promptWithArguments(ctx)
	if err != nil {
		return err
	}
	argName := prompt.Arguments[0].Name

	wrongTypes := []struct {
		label string
		value interface{}
	}{
		{"integer", 123},
		{"boolean", true},
		{"object", map[string]interface{}{"nested": "obj"}},
		{"array", []interface{}{1, 2, 3}},
		{"null", nil},
	}
	for _, wt := range wrongTypes {
		args := requiredArguments(prompt, "example value")
		args[argName] = wt.value
		params := map[string]interface{}{"name": prompt.Name, "arguments": args}
		if err := s.acceptPromptOrInvalidParams(ctx, params, wt.label+" argument"); err != nil {
			return err
		}
	}
	return nil
}

func checkPromptsExtraArguments(ctx context.Context, s *Session) error {
	prompts, err := s.listPrompts(ctx)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return Skip("server lists no prompts")
	}

	args := requiredArguments(prompts[0], "example value")
	args["extra_unknown_arg"] = "should be ignored"
	args["another_extra"] = 12345
	return s.acceptPromptOrInvalidParams(ctx, map[string]interface{}{
		"name":      prompts[0].Name,
		"arguments": args,
	}, "extra arguments")
}

func checkPromptsListChangedCapability(ctx context.Context, s *Session) error {
	return s.RequireCapability(ctx, "prompts", "listChanged")
}

func checkPromptsListChanges(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "prompts", "listChanged"); err != nil {
		return err
	}
	return s.watchList(ctx, "prompts/list", promptKeys)
}
