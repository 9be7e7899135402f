package mockserver

import (
	"context"

	"github.com/mcp-compliance-runner/internal/mcp/protocol"
)

// capabilityHandler answers capabilities/get with a bare map and the legacy
// server/capabilities with the map wrapped in a "capabilities" member.
type capabilityHandler struct {
	capabilities *protocol.CapabilityManager
}

func (h *capabilityHandler) GetSupportedMethods() []string {
	return []string{"capabilities/get", "server/capabilities"}
}

func (h *capabilityHandler) HandleRequest(ctx context.Context, req *protocol.JSONRPC2Request) *protocol.JSONRPC2Response {
	caps := h.capabilities.GetCapabilities()
	if req.Method == "server/capabilities" {
		return protocol.NewResultResponse(req.ID, map[string]interface{}{"capabilities": caps})
	}
	return protocol.NewResultResponse(req.ID, caps)
}
