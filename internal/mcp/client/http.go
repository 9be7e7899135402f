package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 16 << 20

// HTTPTransport posts every request to a single endpoint
type HTTPTransport struct {
	url    string
	client *http.Client
}

// NewHTTPTransport creates a transport for url. A nil client uses a fresh http.Client.
func NewHTTPTransport(url string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{url: url, client: client}
}

// Name identifies the transport in logs
func (t *HTTPTransport) Name() string {
	return "http"
}

// RoundTrip sends payload and reads the whole response
func (t *HTTPTransport) RoundTrip(ctx context.Context, payload []byte) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// Close releases idle connections
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
