package mockserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/sirupsen/logrus"
)

// PromptManager serves prompts/list and prompts/get
type PromptManager struct {
	logger   *logrus.Logger
	state    *State
	pageSize int
	prompts  []PromptInfo
	mutex    sync.RWMutex
}

// NewPromptManager creates a prompt manager over the built-in prompts
func NewPromptManager(logger *logrus.Logger, state *State, pageSize int) *PromptManager {
	return &PromptManager{
		logger:   logger,
		state:    state,
		pageSize: pageSize,
		prompts:  defaultPrompts(),
	}
}

// GetSupportedMethods returns the methods this manager answers
func (pm *PromptManager) GetSupportedMethods() []string {
	return []string{"prompts/list", "prompts/get"}
}

// HandleRequest dispatches a prompts request
func (pm *PromptManager) HandleRequest(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	params, rpcErr := protocol.ParamsObject(req)
	if rpcErr != nil {
		return &protocol.JSONRPC2Response{Error: rpcErr}
	}

	switch req.Method {
	case "prompts/list":
		return pm.list(req, params)
	default:
		return pm.get(req, params)
	}
}

func (pm *PromptManager) current() []PromptInfo {
	pm.mutex.RLock()
	prompts := append([]PromptInfo(nil), pm.prompts...)
	pm.mutex.RUnlock()

	if pm.state.Churn("prompts") {
		prompts = append(prompts, PromptInfo{Name: "dynamic_prompt", Description: "Appears while the list is changing"})
	}
	return prompts
}

func (pm *PromptManager) list(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	prompts := pm.current()
	p, err := paginate("prompts", len(prompts), pm.pageSize, params)
	if err != nil {
		return invalidParams(req, err)
	}
	return protocol.NewResultResponse(req.ID, listResult("prompts", prompts[p.start:p.end], p.next))
}

func (pm *PromptManager) find(name string) (PromptInfo, bool) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	for _, p := range pm.prompts {
		if p.Name == name {
			return p, true
		}
	}
	return PromptInfo{}, false
}

func (pm *PromptManager) get(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return protocol.InvalidParamsResponse(req, "name is required and must be a string")
	}

	if name == "cause_internal_error" {
		pm.logger.WithField("prompt", name).Warn("Simulating prompt processor failure")
		return protocol.NewErrorResponse(req.ID, protocol.InternalError, "Internal error", "prompt processor failed")
	}

	prompt, found := pm.find(name)
	if !found {
		return protocol.InvalidParamsResponse(req, "unknown prompt name %q", name)
	}

	args := map[string]interface{}{}
	if raw, present := params["arguments"]; present && raw != nil {
		args, ok = raw.(map[string]interface{})
		if !ok {
			return protocol.InvalidParamsResponse(req, "arguments must be an object")
		}
	}

	values := make(map[string]string, len(prompt.Arguments))
	for _, arg := range prompt.Arguments {
		raw, present := args[arg.Name]
		if !present || raw == nil {
			if arg.Required {
				return protocol.InvalidParamsResponse(req, "missing required argument %q", arg.Name)
			}
			continue
		}
		s, isString := raw.(string)
		if !isString {
			return protocol.InvalidParamsResponse(req, "argument %q must be a string", arg.Name)
		}
		values[arg.Name] = sanitize(s)
	}

	pm.logger.WithFields(logrus.Fields{
		"prompt":    name,
		"arguments": len(values),
	}).Debug("Rendering prompt")

	return protocol.NewResultResponse(req.ID, map[string]interface{}{
		"description": prompt.Description,
		"messages":    render(prompt.Name, values),
	})
}

func textMessage(role, text string) map[string]interface{} {
	return map[string]interface{}{
		"role":    role,
		"content": map[string]interface{}{"type": "text", "text": text},
	}
}

func render(name string, values map[string]string) []map[string]interface{} {
	switch name {
	case "test_prompt":
		return []map[string]interface{}{
			textMessage("user", fmt.Sprintf("User message with argument: %s", values["arg1"])),
			textMessage("assistant", "Assistant response"),
		}
	case "echo_prompt":
		return []map[string]interface{}{
			textMessage("user", fmt.Sprintf("You said: %s", values["text"])),
		}
	case "image_prompt":
		return []map[string]interface{}{
			textMessage("user", "Describe this image"),
			{
				"role":    "user",
				"content": map[string]interface{}{"type": "image", "data": pixelPNG, "mimeType": "image/png"},
			},
		}
	default:
		return []map[string]interface{}{
			textMessage("user", "Default user message"),
			{
				"role": "assistant",
				"content": map[string]interface{}{
					"type": "resource",
					"resource": map[string]interface{}{
						"uri":      "example://resource1",
						"mimeType": "text/plain",
						"text":     "Content of Example Resource 1",
					},
				},
			},
		}
	}
}
