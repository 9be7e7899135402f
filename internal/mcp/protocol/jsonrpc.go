package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/sirupsen/logrus"
)

// Version is the only accepted value of the jsonrpc member
const Version = "2.0"

// JSONRPC2Request represents a JSON-RPC 2.0 request message
type JSONRPC2Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id,omitempty"`
}

// JSONRPC2Response represents a JSON-RPC 2.0 response message
type JSONRPC2Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError represents a JSON-RPC 2.0 error object
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// Protocol-specific error codes
	ResourceNotFound = -32002
	RateLimited      = -32005
)

// NewResultResponse builds a success envelope; a nil result is sent as an empty object
func NewResultResponse(id interface{}, result interface{}) *JSONRPC2Response {
	if result == nil {
		result = map[string]interface{}{}
	}
	return &JSONRPC2Response{JSONRPC: Version, Result: result, ID: id}
}

// NewErrorResponse builds an error envelope
func NewErrorResponse(id interface{}, code int, message string, data interface{}) *JSONRPC2Response {
	return &JSONRPC2Response{
		JSONRPC: Version,
		Error:   &RPCError{Code: code, Message: message, Data: data},
		ID:      id,
	}
}

// EncodeRequest marshals a request with an integer id. Missing params are sent as an empty object.
func EncodeRequest(id int64, method string, params interface{}) ([]byte, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	return json.Marshal(&JSONRPC2Request{JSONRPC: Version, Method: method, Params: params, ID: id})
}

// Envelope is a decoded response that honours result/error exclusivity
type Envelope struct {
	ID     json.RawMessage
	Result json.RawMessage
	Error  *domain.JSONRPCError
}

// DecodeResponse parses a response body. Anything that is not a well-formed
// JSON-RPC 2.0 response with exactly one of result or error is a TransportError.
func DecodeResponse(op string, body []byte) (*Envelope, error) {
	if !json.Valid(body) {
		return nil, domain.NewTransportError(domain.TransportMalformed, op, errors.New("response body is not valid JSON"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, domain.NewTransportError(domain.TransportEnvelope, op, errors.New("response is not a JSON object"))
	}

	var version string
	if raw, ok := fields["jsonrpc"]; !ok || json.Unmarshal(raw, &version) != nil || version != Version {
		return nil, domain.NewTransportError(domain.TransportEnvelope, op, fmt.Errorf("jsonrpc member must be %q", Version))
	}

	result, hasResult := fields["result"]
	rawErr, hasError := fields["error"]
	switch {
	case hasResult && hasError:
		return nil, domain.NewTransportError(domain.TransportEnvelope, op, errors.New("response contains both result and error"))
	case !hasResult && !hasError:
		return nil, domain.NewTransportError(domain.TransportEnvelope, op, errors.New("response contains neither result nor error"))
	}

	env := &Envelope{ID: fields["id"]}
	if hasResult {
		env.Result = result
		return env, nil
	}

	var rpcErr struct {
		Code    *json.Number `json:"code"`
		Message *string      `json:"message"`
		Data    interface{}  `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(rawErr))
	dec.UseNumber()
	if err := dec.Decode(&rpcErr); err != nil || rpcErr.Code == nil || rpcErr.Message == nil {
		return nil, domain.NewTransportError(domain.TransportEnvelope, op, errors.New("error member must carry a code and message"))
	}
	code, err := rpcErr.Code.Int64()
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportEnvelope, op, fmt.Errorf("error code %s is not an integer", rpcErr.Code.String()))
	}
	env.Error = &domain.JSONRPCError{Code: int(code), Message: *rpcErr.Message, Data: rpcErr.Data}
	return env, nil
}

// MessageHandler defines the interface for handling JSON-RPC messages
type MessageHandler interface {
	HandleRequest(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response
	GetSupportedMethods() []string
}

// HandlerFunc adapts a function to a single-method MessageHandler
type HandlerFunc func(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response

// HandleRequest calls f
func (f HandlerFunc) HandleRequest(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	return f(ctx, req)
}

// GetSupportedMethods returns nil; the method is chosen at registration
func (f HandlerFunc) GetSupportedMethods() []string {
	return nil
}

// ProtocolCore validates incoming envelopes and dispatches them to registered handlers
type ProtocolCore struct {
	logger       *logrus.Logger
	handlers     map[string]MessageHandler
	capabilities *CapabilityManager
	mu           sync.RWMutex
}

// NewProtocolCore creates a new JSON-RPC 2.0 protocol core
func NewProtocolCore(logger *logrus.Logger, capabilities *CapabilityManager) *ProtocolCore {
	return &ProtocolCore{
		logger:       logger,
		handlers:     make(map[string]MessageHandler),
		capabilities: capabilities,
	}
}

// RegisterHandler registers a message handler for a specific method
func (p *ProtocolCore) RegisterHandler(method string, handler MessageHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handlers[method] = handler
	p.logger.WithField("method", method).Debug("Registered JSON-RPC handler")
}

// Register registers handler for every method it reports
func (p *ProtocolCore) Register(handler MessageHandler) {
	for _, method := range handler.GetSupportedMethods() {
		p.RegisterHandler(method, handler)
	}
}

// Methods returns the registered method names in sorted order
func (p *ProtocolCore) Methods() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	methods := make([]string, 0, len(p.handlers))
	for m := range p.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// GetCapabilities returns current server capabilities
func (p *ProtocolCore) GetCapabilities() map[string]interface{} {
	return p.capabilities.GetCapabilities()
}

// ProcessMessage validates and dispatches one raw message. It always returns a
// response envelope; a ParseError code tells HTTP callers to answer 400.
func (p *ProtocolCore) ProcessMessage(ctx context.Context, clientID string, rawMessage []byte) *JSONRPC2Response {
	p.logger.WithFields(logrus.Fields{
		"client_id":      clientID,
		"message_length": len(rawMessage),
	}).Debug("Processing JSON-RPC message")

	req, rpcErr := decodeRequest(rawMessage)
	if rpcErr != nil {
		var id interface{}
		if req != nil {
			id = req.ID
		}
		return &JSONRPC2Response{JSONRPC: Version, Error: rpcErr, ID: id}
	}

	return p.handleRequest(ctx, req)
}

// decodeRequest checks the envelope member by member so each malformation gets its own message
func decodeRequest(raw []byte) (*JSONRPC2Request, *RPCError) {
	if !json.Valid(raw) {
		return nil, &RPCError{Code: ParseError, Message: "Parse error", Data: "request body is not valid JSON"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "request must be a JSON object"}
	}

	req := &JSONRPC2Request{}
	if rawID, ok := fields["id"]; ok {
		var id interface{}
		if err := json.Unmarshal(rawID, &id); err == nil {
			req.ID = id
		}
	}

	rawVersion, ok := fields["jsonrpc"]
	if !ok {
		return req, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "missing jsonrpc member"}
	}
	if err := json.Unmarshal(rawVersion, &req.JSONRPC); err != nil || req.JSONRPC != Version {
		return req, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "JSON-RPC version must be 2.0"}
	}

	rawMethod, ok := fields["method"]
	if !ok {
		return req, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "missing method"}
	}
	if err := json.Unmarshal(rawMethod, &req.Method); err != nil {
		return req, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "method must be a string"}
	}

	if rawParams, ok := fields["params"]; ok && !bytes.Equal(bytes.TrimSpace(rawParams), []byte("null")) {
		var params interface{}
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return req, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "params could not be decoded"}
		}
		switch params.(type) {
		case map[string]interface{}, []interface{}:
			req.Params = params
		default:
			return req, &RPCError{Code: InvalidRequest, Message: "Invalid Request", Data: "params must be an object or array"}
		}
	}

	return req, nil
}

// handleRequest processes a validated JSON-RPC request
func (p *ProtocolCore) handleRequest(ctx context.Context, req *JSONRPC2Request) *JSONRPC2Response {
	p.mu.RLock()
	handler, exists := p.handlers[req.Method]
	p.mu.RUnlock()

	if !exists {
		return NewErrorResponse(req.ID, MethodNotFound, "Method not found", fmt.Sprintf("Method '%s' not found", req.Method))
	}

	response := handler.HandleRequest(ctx, req)
	if response == nil {
		response = NewResultResponse(req.ID, nil)
	}
	response.JSONRPC = Version
	response.ID = req.ID

	return response
}

// ParamsObject returns the request params as an object. Absent params yield an empty map.
func ParamsObject(req *JSONRPC2Request) (map[string]interface{}, *RPCError) {
	if req.Params == nil {
		return map[string]interface{}{}, nil
	}
	params, ok := req.Params.(map[string]interface{})
	if !ok {
		return nil, &RPCError{Code: InvalidParams, Message: "Invalid params", Data: "params must be an object"}
	}
	return params, nil
}

// InvalidParamsResponse is shorthand for the most common handler failure
func InvalidParamsResponse(req *JSONRPC2Request, format string, args ...interface{}) *JSONRPC2Response {
	return NewErrorResponse(req.ID, InvalidParams, "Invalid params", fmt.Sprintf(format, args...))
}
