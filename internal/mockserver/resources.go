package mockserver

import (
	"context"
	"sync"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/sirupsen/logrus"
)

// ResourceManager serves resources/* methods
type ResourceManager struct {
	logger        *logrus.Logger
	state         *State
	pageSize      int
	resources     []ResourceInfo
	templates     []TemplateInfo
	subscriptions *Subscriptions
	mutex         sync.RWMutex
}

// NewResourceManager creates a resource manager over the built-in resources
func NewResourceManager(logger *logrus.Logger, state *State, pageSize int, subscriptions *Subscriptions) *ResourceManager {
	return &ResourceManager{
		logger:        logger,
		state:         state,
		pageSize:      pageSize,
		resources:     defaultResources(),
		templates:     defaultTemplates(),
		subscriptions: subscriptions,
	}
}

// GetSupportedMethods returns the methods this manager answers
func (rm *ResourceManager) GetSupportedMethods() []string {
	return []string{
		"resources/list",
		"resources/read",
		"resources/templates/list",
		"resources/subscribe",
		"resources/unsubscribe",
	}
}

// HandleRequest dispatches a resources request
func (rm *ResourceManager) HandleRequest(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	params, rpcErr := protocol.ParamsObject(req)
	if rpcErr != nil {
		return &protocol.JSONRPC2Response{Error: rpcErr}
	}

	switch req.Method {
	case "resources/list":
		return rm.list(req, params)
	case "resources/read":
		return rm.read(req, params)
	case "resources/templates/list":
		return rm.listTemplates(req, params)
	case "resources/subscribe":
		return rm.subscribe(req, params)
	default:
		return rm.unsubscribe(req, params)
	}
}

func (rm *ResourceManager) list(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	rm.mutex.RLock()
	resources := append([]ResourceInfo(nil), rm.resources...)
	rm.mutex.RUnlock()

	if rm.state.Churn("resources") {
		resources = append(resources, ResourceInfo{URI: "example://dynamic", Name: "Dynamic Resource", MimeType: "text/plain"})
	}

	p, err := paginate("resources", len(resources), rm.pageSize, params)
	if err != nil {
		return invalidParams(req, err)
	}
	return protocol.NewResultResponse(req.ID, listResult("resources", resources[p.start:p.end], p.next))
}

func (rm *ResourceManager) listTemplates(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	p, err := paginate("templates", len(rm.templates), rm.pageSize, params)
	if err != nil {
		return invalidParams(req, err)
	}
	return protocol.NewResultResponse(req.ID, listResult("resourceTemplates", rm.templates[p.start:p.end], p.next))
}

func (rm *ResourceManager) find(uri string) (ResourceInfo, bool) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	for _, r := range rm.resources {
		if r.URI == uri {
			return r, true
		}
	}
	return ResourceInfo{}, false
}

// lookup validates the uri parameter and resolves it, returning the error response to send on failure
func (rm *ResourceManager) lookup(req *protocol.JSONRPC2Request, params map[string]interface{}) (ResourceInfo, *protocol.JSONRPC2Response) {
	uri, ok := params["uri"].(string)
	if !ok || uri == "" {
		return ResourceInfo{}, protocol.InvalidParamsResponse(req, "uri is required and must be a string")
	}
	resource, found := rm.find(uri)
	if !found {
		return ResourceInfo{}, protocol.NewErrorResponse(req.ID, protocol.ResourceNotFound, "Resource not found", uri)
	}
	return resource, nil
}

func (rm *ResourceManager) read(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	resource, errResp := rm.lookup(req, params)
	if errResp != nil {
		return errResp
	}

	content := map[string]interface{}{
		"uri":      resource.URI,
		"mimeType": resource.MimeType,
	}
	if resource.blob != "" {
		content["blob"] = resource.blob
	} else {
		content["text"] = resource.text
	}
	return protocol.NewResultResponse(req.ID, map[string]interface{}{
		"contents": []interface{}{content},
	})
}

func (rm *ResourceManager) subscribe(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	resource, errResp := rm.lookup(req, params)
	if errResp != nil {
		return errResp
	}

	id := rm.subscriptions.Subscribe(resource.URI)
	rm.logger.WithFields(logrus.Fields{
		"uri":             resource.URI,
		"subscription_id": id,
		"active":          rm.subscriptions.Len(),
	}).Debug("Resource subscribed")

	return protocol.NewResultResponse(req.ID, map[string]interface{}{
		"subscriptionId": id,
		"uri":            resource.URI,
	})
}

func (rm *ResourceManager) unsubscribe(req *protocol.JSONRPC2Request, params map[string]interface{}) *protocol.JSONRPC2Response {
	id, ok := params["subscriptionId"].(string)
	if !ok || id == "" {
		return protocol.InvalidParamsResponse(req, "subscriptionId is required and must be a string")
	}
	uri, found := rm.subscriptions.Unsubscribe(id)
	if !found {
		return protocol.InvalidParamsResponse(req, "unknown subscription %q", id)
	}

	rm.logger.WithFields(logrus.Fields{
		"uri":             uri,
		"subscription_id": id,
	}).Debug("Resource unsubscribed")

	return protocol.NewResultResponse(req.ID, map[string]interface{}{"unsubscribed": true})
}
