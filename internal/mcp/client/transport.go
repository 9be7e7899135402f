package client

import (
	"context"
	"errors"
	"net"

	"github.com/mcp-compliance-runner/internal/domain"
)

// RawResponse is what came back over the wire before any JSON-RPC decoding
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Transport moves one request payload to the server and returns its reply
type Transport interface {
	RoundTrip(ctx context.Context, payload []byte) (*RawResponse, error)
	Name() string
	Close() error
}

// classify turns a low-level error into a TransportError
func classify(op string, err error) *domain.TransportError {
	var te *domain.TransportError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTransportError(domain.TransportTimeout, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewTransportError(domain.TransportTimeout, op, err)
	}
	return domain.NewTransportError(domain.TransportConnection, op, err)
}
