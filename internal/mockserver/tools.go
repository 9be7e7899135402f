package mockserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
	"github.com/sirupsen/logrus"
)

// errorModes are the error_tool modes that produce an isError result
var errorModes = map[string]bool{
	"trigger":       true,
	"error":         true,
	"fail":          true,
	"failure":       true,
	"trigger error": true,
}

// ToolManager serves tools/list and tools/call
type ToolManager struct {
	logger   *logrus.Logger
	state    *State
	pageSize int
	limiter  *protocol.RateLimiter
	tools    []ToolInfo
	schemas  map[string]*validator.InputSchema
	mutex    sync.RWMutex
}

// NewToolManager compiles the input schema of every built-in tool
func NewToolManager(logger *logrus.Logger, state *State, pageSize int, limiter *protocol.RateLimiter) (*ToolManager, error) {
	tm := &ToolManager{
		logger:   logger,
		state:    state,
		pageSize: pageSize,
		limiter:  limiter,
		tools:    defaultTools(),
		schemas:  make(map[string]*validator.InputSchema),
	}
	for _, tool := range tm.tools {
		schema, err := validator.CompileInputSchema(tool.Name, tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for tool %s: %w", tool.Name, err)
		}
		tm.schemas[tool.Name] = schema
	}
	return tm, nil
}

// GetSupportedMethods returns the methods this manager answers
func (tm *ToolManager) GetSupportedMethods() []string {
	return []string{"tools/list", "tools/call"}
}

// HandleRequest dispatches a tools request
func (tm *ToolManager) HandleRequest(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	params, rpcErr := protocol.ParamsObject(req)
	if rpcErr != nil {
		return &protocol.JSONRPC2Response{Error: rpcErr}
	}

	if req.Method == "tools/list" {
		return tm.list(req, params)
	}
	return tm.call(req, params)
}

func (tm *ToolManager) list(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	tm.mutex.RLock()
	tools := append([]ToolInfo(nil), tm.tools...)
	tm.mutex.RUnlock()

	if tm.state.Churn("tools") {
		tools = append(tools, ToolInfo{
			Name:        "dynamic_tool",
			Description: "Appears while the list is changing",
			InputSchema: map[string]interface{}{"type": "object"},
		})
	}

	p, err := paginate("tools", len(tools), tm.pageSize, params)
	if err != nil {
		return invalidParams(req, err)
	}
	return protocol.NewResultResponse(req.ID, listResult("tools", tools[p.start:p.end], p.next))
}

func (tm *ToolManager) call(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return protocol.InvalidParamsResponse(req, "name is required and must be a string")
	}

	tm.mutex.RLock()
	schema, known := tm.schemas[name]
	tm.mutex.RUnlock()
	if !known {
		return protocol.InvalidParamsResponse(req, "unknown tool name %q", name)
	}

	args := map[string]interface{}{}
	if raw, present := params["arguments"]; present && raw != nil {
		args, ok = raw.(map[string]interface{})
		if !ok {
			return protocol.InvalidParamsResponse(req, "arguments must be an object")
		}
	}

	if containsNullByte(args) {
		return protocol.InvalidParamsResponse(req, "arguments must not contain null bytes")
	}
	if err := schema.Validate(args); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidParams, "Invalid params", violationData(err))
	}

	if name == "admin_only_tool" {
		return protocol.NewErrorResponse(req.ID, protocol.InvalidParams, "Unauthorized", "admin privileges required")
	}

	if !tm.limiter.Allow(name) {
		return protocol.NewErrorResponse(req.ID, protocol.RateLimited, "Rate limit exceeded", fmt.Sprintf("tool %q is rate limited", name))
	}

	tm.logger.WithField("tool", name).Debug("Executing tool")
	return protocol.NewResultResponse(req.ID, execute(name, args))
}

func textResult(text string, isError bool) map[string]interface{} {
	result := map[string]interface{}{
		"content": []interface{}{map[string]interface{}{"type": "text", "text": text}},
	}
	if isError {
		result["isError"] = true
	}
	return result
}

func execute(name string, args map[string]interface{}) map[string]interface{} {
	switch name {
	case "echo_tool":
		text, _ := args["text"].(string)
		return textResult("Echo: "+sanitize(text), false)
	case "error_tool":
		mode, _ := args["mode"].(string)
		if errorModes[strings.ToLower(mode)] {
			return textResult("Error occurred: the external API returned a rate limit exceeded error", true)
		}
		return textResult(fmt.Sprintf("error_tool completed without error in mode %q", sanitize(mode)), false)
	default:
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return textResult(fmt.Sprintf("Tool %s executed successfully with arguments: %s", name, strings.Join(keys, ", ")), false)
	}
}

// violationData renders schema violations as the error data payload
func violationData(err error) interface{} {
	var sv *domain.SchemaViolationError
	if errors.As(err, &sv) {
		out := make([]map[string]string, 0, len(sv.Violations))
		for _, v := range sv.Violations {
			out = append(out, map[string]string{"path": v.Path, "constraint": v.Constraint})
		}
		return out
	}
	return err.Error()
}
