package mockserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/mcp/client"
	"github.com/mcp-compliance-runner/internal/mcp/validator"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() domain.MockConfig {
	return domain.MockConfig{
		Host:                 "127.0.0.1",
		Port:                 0,
		PageSize:             2,
		RateLimitPerMinute:   30,
		SlowDelay:            200 * time.Millisecond,
		SubscriptionCapacity: 16,
	}
}

type fixture struct {
	server *Server
	http   *httptest.Server
	client *client.Client
}

func newFixture(t *testing.T, cfg domain.MockConfig) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	srv, err := NewServer(cfg, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := client.New(client.NewHTTPTransport(ts.URL, nil), client.WithLogger(logger), client.WithTimeout(5*time.Second))
	t.Cleanup(func() { c.Close() })

	return &fixture{server: srv, http: ts, client: c}
}

func (f *fixture) call(t *testing.T, method string, params interface{}) json.RawMessage {
	t.Helper()
	value, err := f.client.Call(context.Background(), method, params)
	require.NoError(t, err, "%s failed", method)
	return value
}

func (f *fixture) expectCode(t *testing.T, code int, method string, params interface{}) {
	t.Helper()
	_, err := f.client.Call(context.Background(), method, params)
	var rpcErr *domain.JSONRPCError
	require.True(t, errors.As(err, &rpcErr), "%s: expected JSON-RPC error %d, got %v", method, code, err)
	assert.Equal(t, code, rpcErr.Code, "%s: %s", method, rpcErr.Message)
}

func (f *fixture) admin(t *testing.T, body string) {
	t.Helper()
	resp, err := http.Post(f.http.URL+"/admin/config", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCapabilities(t *testing.T) {
	f := newFixture(t, testConfig())

	caps, err := validator.ParseCapabilities(f.call(t, "capabilities/get", nil))
	require.NoError(t, err)
	assert.True(t, caps.Declares("prompts", "listChanged"))
	assert.True(t, caps.Declares("resources", "subscribe"))
	assert.True(t, caps.Declares("completion", "complete"))

	wrapped, err := validator.ParseCapabilities(f.call(t, "server/capabilities", nil))
	require.NoError(t, err)
	assert.True(t, wrapped.Declares("tools", "listChanged"))

	f.server.Capabilities().UpdateServerCapability("completion", nil)
	caps, err = validator.ParseCapabilities(f.call(t, "capabilities/get", nil))
	require.NoError(t, err)
	assert.False(t, caps.Has("completion"))
}

func TestPromptsListPagination(t *testing.T) {
	f := newFixture(t, testConfig())

	all, err := validator.PromptsList(f.call(t, "prompts/list", nil))
	require.NoError(t, err)
	assert.Len(t, all.Prompts, 4)
	assert.Empty(t, all.NextCursor)

	first, err := validator.PromptsList(f.call(t, "prompts/list", map[string]interface{}{"use_pagination": true}))
	require.NoError(t, err)
	require.Len(t, first.Prompts, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "test_prompt", first.Prompts[0].Name)

	second, err := validator.PromptsList(f.call(t, "prompts/list", map[string]interface{}{"cursor": first.NextCursor}))
	require.NoError(t, err)
	require.Len(t, second.Prompts, 2)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, "echo_prompt", second.Prompts[0].Name)

	f.expectCode(t, -32602, "prompts/list", map[string]interface{}{"cursor": "invalid_cursor"})
	f.expectCode(t, -32602, "prompts/list", map[string]interface{}{"use_pagination": "not_a_bool"})
	f.expectCode(t, -32602, "tools/list", map[string]interface{}{"cursor": first.NextCursor})
}

func TestPromptsGet(t *testing.T) {
	f := newFixture(t, testConfig())

	f.expectCode(t, -32602, "prompts/get", map[string]interface{}{"name": "test_prompt", "arguments": map[string]interface{}{}})
	f.expectCode(t, -32602, "prompts/get", map[string]interface{}{"name": "invalid_prompt"})
	f.expectCode(t, -32602, "prompts/get", map[string]interface{}{"name": "test_prompt", "arguments": map[string]interface{}{"arg1": 123}})
	f.expectCode(t, -32603, "prompts/get", map[string]interface{}{"name": "cause_internal_error"})

	result, err := validator.PromptGet(f.call(t, "prompts/get", map[string]interface{}{
		"name":      "test_prompt",
		"arguments": map[string]interface{}{"arg1": `<img src="x" onerror="alert(1)">`, "extra": 1},
	}))
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	text := result.Messages[0].Content.(validator.TextContent).Text
	assert.NotContains(t, text, "onerror=")
	assert.NotContains(t, text, "<img")

	for _, name := range []string{"simple_prompt", "image_prompt"} {
		_, err := validator.PromptGet(f.call(t, "prompts/get", map[string]interface{}{"name": name}))
		assert.NoError(t, err, name)
	}
}

func TestResources(t *testing.T) {
	f := newFixture(t, testConfig())

	list, err := validator.ResourcesList(f.call(t, "resources/list", nil))
	require.NoError(t, err)
	require.Len(t, list.Resources, 3)

	for _, r := range list.Resources {
		read, err := validator.ResourceRead(f.call(t, "resources/read", map[string]interface{}{"uri": r.URI}))
		require.NoError(t, err, r.URI)
		assert.Equal(t, r.URI, read.Contents[0].URI)
		assert.Equal(t, r.MimeType, read.Contents[0].MimeType)
	}

	f.expectCode(t, -32002, "resources/read", map[string]interface{}{"uri": "unknown://resource"})
	f.expectCode(t, -32602, "resources/read", map[string]interface{}{})
	f.expectCode(t, -32602, "resources/read", map[string]interface{}{"uri": 123})
	f.expectCode(t, -32602, "resources/list", map[string]interface{}{"use_pagination": "not_a_bool"})

	templates, err := validator.ResourceTemplatesList(f.call(t, "resources/templates/list", nil))
	require.NoError(t, err)
	assert.Len(t, templates.ResourceTemplates, 2)
}

func TestSubscriptionLifecycle(t *testing.T) {
	f := newFixture(t, testConfig())

	sub, err := validator.Subscribe(f.call(t, "resources/subscribe", map[string]interface{}{"uri": "example://resource1"}))
	require.NoError(t, err)
	require.NotEmpty(t, sub.SubscriptionID)

	f.call(t, "resources/unsubscribe", map[string]interface{}{"subscriptionId": sub.SubscriptionID})
	f.expectCode(t, -32602, "resources/unsubscribe", map[string]interface{}{"subscriptionId": sub.SubscriptionID})
	f.expectCode(t, -32602, "resources/unsubscribe", map[string]interface{}{"subscriptionId": "invalid_id"})
	f.expectCode(t, -32002, "resources/subscribe", map[string]interface{}{"uri": "unknown://resource"})
	f.expectCode(t, -32602, "resources/subscribe", map[string]interface{}{})
}

func TestToolsCall(t *testing.T) {
	f := newFixture(t, testConfig())

	list, err := validator.ToolsList(f.call(t, "tools/list", nil))
	require.NoError(t, err)
	require.Len(t, list.Tools, 5)
	assert.Equal(t, "example_tool", list.Tools[0].Name)

	ok, err := validator.ToolCall(f.call(t, "tools/call", map[string]interface{}{
		"name":      "example_tool",
		"arguments": map[string]interface{}{"query": "test"},
	}))
	require.NoError(t, err)
	assert.False(t, ok.IsError)

	echo, err := validator.ToolCall(f.call(t, "tools/call", map[string]interface{}{
		"name":      "echo_tool",
		"arguments": map[string]interface{}{"text": "<script>alert(1)</script> onerror= 😀"},
	}))
	require.NoError(t, err)
	text := validator.TextOf(echo.Content)
	assert.NotContains(t, text, "<script>")
	assert.NotContains(t, text, "onerror=")
	assert.Contains(t, text, "😀")

	failed, err := validator.ToolCall(f.call(t, "tools/call", map[string]interface{}{
		"name":      "error_tool",
		"arguments": map[string]interface{}{"mode": "trigger error"},
	}))
	require.NoError(t, err)
	assert.True(t, failed.IsError)
	assert.True(t, failed.HasText())

	f.expectCode(t, -32602, "tools/call", map[string]interface{}{"name": "unknown_tool", "arguments": map[string]interface{}{}})
	f.expectCode(t, -32602, "tools/call", map[string]interface{}{"name": "example_tool", "arguments": map[string]interface{}{}})
	f.expectCode(t, -32602, "tools/call", map[string]interface{}{"name": "example_tool", "arguments": map[string]interface{}{"query": 12345}})
	f.expectCode(t, -32602, "tools/call", map[string]interface{}{"name": "echo_tool", "arguments": map[string]interface{}{"text": "test\x00null"}})
	f.expectCode(t, -32602, "tools/call", map[string]interface{}{"name": "admin_only_tool", "arguments": map[string]interface{}{"command": "ls"}})
}

func TestToolsCallRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 3
	f := newFixture(t, cfg)

	args := map[string]interface{}{"name": "calculator", "arguments": map[string]interface{}{"expression": "1+1"}}
	for i := 0; i < 3; i++ {
		f.call(t, "tools/call", args)
	}
	f.expectCode(t, -32005, "tools/call", args)

	// limits are per tool
	f.call(t, "tools/call", map[string]interface{}{"name": "example_tool", "arguments": map[string]interface{}{"query": "q"}})
}

func TestCompletion(t *testing.T) {
	f := newFixture(t, testConfig())

	result, err := validator.Completion(f.call(t, "completion/complete", map[string]interface{}{
		"ref":      map[string]interface{}{"type": "ref/prompt", "name": "test_prompt"},
		"argument": map[string]interface{}{"name": "arg1", "value": "ex"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"example", "expert", "excellent"}, result.Values)
	assert.False(t, result.HasMore)

	resource, err := validator.Completion(f.call(t, "completion/complete", map[string]interface{}{
		"ref":      map[string]interface{}{"type": "ref/resource", "uri": "template://example/{name}"},
		"argument": map[string]interface{}{"name": "name", "value": "ex"},
	}))
	require.NoError(t, err)
	assert.Contains(t, resource.Values, "exfile1.txt")

	f.expectCode(t, -32602, "completion/complete", map[string]interface{}{"ref": map[string]interface{}{"type": "invalid", "name": "test"}})
	f.expectCode(t, -32602, "completion/complete", map[string]interface{}{"ref": map[string]interface{}{"type": "ref/prompt"}})
	f.expectCode(t, -32602, "completion/complete", map[string]interface{}{
		"ref":      map[string]interface{}{"type": "ref/prompt", "name": "nonexistent"},
		"argument": map[string]interface{}{"name": "test", "value": "test"},
	})
	f.expectCode(t, -32602, "completion/complete", map[string]interface{}{
		"ref":      map[string]interface{}{"type": "ref/prompt", "name": "test_prompt"},
		"argument": map[string]interface{}{"name": "non_existent_arg", "value": "test"},
	})
}

func TestEnvelopeHandling(t *testing.T) {
	f := newFixture(t, testConfig())

	f.expectCode(t, -32601, "undefined_method", nil)

	raw, err := f.client.SendRaw(context.Background(), []byte("this is not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	tests := []struct {
		name    string
		payload string
	}{
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"prompts/list"}`},
		{"missing version", `{"id":1,"method":"prompts/list"}`},
		{"missing method", `{"jsonrpc":"2.0","id":1}`},
		{"non-string method", `{"jsonrpc":"2.0","id":1,"method":123}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := f.client.SendRaw(context.Background(), []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, raw.StatusCode)

			var resp struct {
				Error struct {
					Code int `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(raw.Body, &resp))
			assert.Equal(t, -32600, resp.Error.Code)
		})
	}
}

func TestAdminConfig(t *testing.T) {
	cfg := testConfig()
	f := newFixture(t, cfg)

	f.admin(t, `{"force_invalid_json": true}`)
	_, err := f.client.Call(context.Background(), "tools/list", nil)
	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, domain.TransportStatus, te.Kind)
	f.call(t, "tools/list", nil)

	f.admin(t, `{"list_churn": true}`)
	first, err := validator.ToolsList(f.call(t, "tools/list", nil))
	require.NoError(t, err)
	second, err := validator.ToolsList(f.call(t, "tools/list", nil))
	require.NoError(t, err)
	assert.NotEqual(t, len(first.Tools), len(second.Tools))

	f.admin(t, `{"list_churn": false, "slow_response": true}`)
	logger, _ := test.NewNullLogger()
	impatient := client.New(client.NewHTTPTransport(f.http.URL, nil), client.WithLogger(logger), client.WithTimeout(50*time.Millisecond))
	defer impatient.Close()
	_, err = impatient.Call(context.Background(), "tools/list", nil)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, domain.TransportTimeout, te.Kind)

	resp, err := http.Post(f.http.URL+"/admin/config", "application/json", bytes.NewReader([]byte("nope")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t, testConfig())

	resp, err := http.Get(f.http.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Contains(t, string(body), "completion/complete")
}

func TestWebSocketEndpoint(t *testing.T) {
	f := newFixture(t, testConfig())

	wsURL, err := client.WebSocketURL(f.http.URL)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	c := client.New(client.NewWebSocketTransport(wsURL), client.WithLogger(logger), client.WithTimeout(2*time.Second))
	defer c.Close()

	value, err := c.Call(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	list, err := validator.ToolsList(value)
	require.NoError(t, err)
	assert.Len(t, list.Tools, 5)

	_, err = c.Call(context.Background(), "resources/read", map[string]interface{}{"uri": "unknown://resource"})
	var rpcErr *domain.JSONRPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32002, rpcErr.Code)
}

func TestStart_GracefulShutdown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv, err := NewServer(testConfig(), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
