package mockserver

import (
	"context"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/sirupsen/logrus"
)

var (
	promptSuffixes   = []string{"ample", "pert", "cellent"}
	resourceSuffixes = []string{"file1.txt", "file2.json", "directory/"}
)

// CompletionManager serves completion/complete
type CompletionManager struct {
	logger    *logrus.Logger
	prompts   *PromptManager
	resources *ResourceManager
}

// NewCompletionManager creates a completion manager resolving refs against prompts and resources
func NewCompletionManager(logger *logrus.Logger, prompts *PromptManager, resources *ResourceManager) *CompletionManager {
	return &CompletionManager{logger: logger, prompts: prompts, resources: resources}
}

// GetSupportedMethods returns the methods this manager answers
func (cm *CompletionManager) GetSupportedMethods() []string {
	return []string{"completion/complete"}
}

// HandleRequest completes a prompt argument or a resource uri
func (cm *CompletionManager) HandleRequest(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	params, rpcErr := protocol.ParamsObject(req)
	if rpcErr != nil {
		return &protocol.JSONRPC2Response{Error: rpcErr}
	}

	ref, ok := params["ref"].(map[string]interface{})
	if !ok {
		return protocol.InvalidParamsResponse(req, "ref is required and must be an object")
	}
	argument, _ := params["argument"].(map[string]interface{})
	value, _ := argument["value"].(string)

	refType, _ := ref["type"].(string)
	switch refType {
	case "ref/prompt":
		name, ok := ref["name"].(string)
		if !ok || name == "" {
			return protocol.InvalidParamsResponse(req, "ref.name is required for prompt references")
		}
		prompt, found := cm.prompts.find(name)
		if !found {
			return protocol.InvalidParamsResponse(req, "unknown prompt name %q", name)
		}
		if len(prompt.Arguments) > 0 {
			argName, _ := argument["name"].(string)
			if !hasArgument(prompt, argName) {
				return protocol.InvalidParamsResponse(req, "unknown argument %q for prompt %q", argName, name)
			}
		}
		return completionResponse(req, value, promptSuffixes)

	case "ref/resource":
		uri, ok := ref["uri"].(string)
		if !ok || uri == "" {
			return protocol.InvalidParamsResponse(req, "ref.uri is required for resource references")
		}
		cm.logger.WithField("uri", uri).Debug("Completing resource reference")
		return completionResponse(req, value, resourceSuffixes)

	default:
		return protocol.InvalidParamsResponse(req, "unsupported ref type %q", refType)
	}
}

func hasArgument(prompt PromptInfo, name string) bool {
	for _, arg := range prompt.Arguments {
		if arg.Name == name {
			return true
		}
	}
	return false
}

func completionResponse(req *protocol.JSONRPC2Request, value string, suffixes []string) *protocol.JSONRPC2Response {
	values := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		values = append(values, value+s)
	}
	return protocol.NewResultResponse(req.ID, map[string]interface{}{
		"completion": map[string]interface{}{
			"values":  values,
			"hasMore": false,
			"total":   len(values),
		},
	})
}
