package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport sends one request at a time over a lazily dialled connection
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NewWebSocketTransport creates a transport for a ws:// or wss:// URL
func NewWebSocketTransport(url string) *WebSocketTransport {
	return &WebSocketTransport{url: url, dialer: websocket.DefaultDialer}
}

// WebSocketURL converts an http(s) server URL into the ws(s) endpoint the
// bundled mock server exposes; ws(s) URLs are returned unchanged.
func WebSocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Name identifies the transport in logs
func (t *WebSocketTransport) Name() string {
	return "websocket"
}

// RoundTrip writes payload as a text frame and waits for the next frame
func (t *WebSocketTransport) RoundTrip(ctx context.Context, payload []byte) (*RawResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
		if err != nil {
			return nil, fmt.Errorf("websocket connection failed: %w", err)
		}
		t.conn = conn
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	_ = t.conn.SetWriteDeadline(deadline)
	_ = t.conn.SetReadDeadline(deadline)

	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.reset()
		return nil, err
	}

	_, body, err := t.conn.ReadMessage()
	if err != nil {
		t.reset()
		return nil, err
	}
	return &RawResponse{StatusCode: http.StatusOK, Body: body}, nil
}

// reset drops a broken connection so the next call redials
func (t *WebSocketTransport) reset() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// Close closes the connection if one is open
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := t.conn.Close()
	t.conn = nil
	return err
}
