package conformance

import (
	"context"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
)

// maxCompletionValues is the protocol ceiling on values per completion
const maxCompletionValues = 100

func (s *Session) complete(ctx context.Context, ref map[string]interface{}, argName, value string) (*validator.CompletionResult, error) {
	raw, err := s.Call(ctx, "completion/complete", map[string]interface{}{
		"ref":      ref,
		"argument": map[string]interface{}{"name": argName, "value": value},
	})
	if err != nil {
		return nil, err
	}
	return validator.Completion(raw)
}

func (s *Session) completePrompt(ctx context.Context) (*validator.CompletionResult, error) {
	if err := s.RequireCapability(ctx, "completion", "complete"); err != nil {
		return nil, err
	}
	prompt, err := s.promptWithArguments(ctx)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, map[string]interface{}{"type": "ref/prompt", "name": prompt.Name}, prompt.Arguments[0].Name, "ex")
}

func checkCompletionPrompt(ctx context.Context, s *Session) error {
	_, err := s.completePrompt(ctx)
	return err
}

func checkCompletionResource(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "completion", "complete"); err != nil {
		return err
	}
	templates, err := s.listTemplates(ctx)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return Skip("server lists no resource templates")
	}
	_, err = s.complete(ctx, map[string]interface{}{"type": "ref/resource", "uri": templates[0].URITemplate}, "uri", "fi")
	return err
}

func checkCompletionInvalidRefs(ctx context.Context, s *Session) error {
	if err := s.RequireCapability(ctx, "completion", "complete"); err != nil {
		return err
	}
	argument := map[string]interface{}{"name": "arg", "value": "ex"}
	invalid := []map[string]interface{}{
		{"type": "invalid_type", "name": "test"},
		{"type": "ref/prompt"},
		{"type": "ref/prompt", "name": "nonexistent_prompt_for_compliance"},
	}
	for _, ref := range invalid {
		params := map[string]interface{}{"ref": ref, "argument": argument}
		if err := s.ExpectError(ctx, "completion/complete", params, protocol.InvalidParams); err != nil {
			return err
		}
	}
	return nil
}

func checkCompletionLimit(ctx context.Context, s *Session) error {
	result, err := s.completePrompt(ctx)
	if err != nil {
		return err
	}
	if len(result.Values) > maxCompletionValues {
		return Failf("completion returned %d values, at most %d are allowed", len(result.Values), maxCompletionValues)
	}
	return nil
}
