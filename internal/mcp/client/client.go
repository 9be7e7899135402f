// Package client is the conformance client: it sends JSON-RPC requests and
// classifies every reply as a result, a JSON-RPC error or a transport failure.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/logging"
	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// DefaultTimeout bounds a single exchange when no timeout is configured
const DefaultTimeout = 10 * time.Second

// Result is the outcome of an exchange that produced a well-formed envelope:
// exactly one of Value and RPCError is set.
type Result struct {
	Value    json.RawMessage
	RPCError *domain.JSONRPCError
}

// OK reports whether the server returned a result
func (r *Result) OK() bool {
	return r.RPCError == nil
}

// Client issues requests with a monotonically increasing id
type Client struct {
	transport Transport
	logger    *logrus.Logger
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker
	nextID    int64
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-exchange timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBreaker makes the client fail fast after failures consecutive transport
// failures, probing again after cooldown. Zero failures disables the breaker.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ConformanceClient",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				c.logger.WithFields(logrus.Fields{
					"circuit_breaker": name,
					"from_state":      from.String(),
					"to_state":        to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}
}

// New creates a client over transport
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		logger:    logrus.StandardLogger(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exchange sends one request. The error is always a *domain.TransportError;
// JSON-RPC error envelopes are reported through Result.RPCError.
func (c *Client) Exchange(ctx context.Context, method string, params interface{}) (*Result, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	payload, err := protocol.EncodeRequest(id, method, params)
	if err != nil {
		return nil, domain.NewTransportError(domain.TransportMalformed, method, fmt.Errorf("failed to encode request: %w", err))
	}

	start := time.Now()
	entry := c.logger.WithFields(logrus.Fields{
		"method":     method,
		"request_id": id,
		"transport":  c.transport.Name(),
	})

	raw, err := c.roundTrip(ctx, method, payload)
	if err != nil {
		entry.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Exchange failed")
		return nil, err
	}

	env, err := protocol.DecodeResponse(method, raw.Body)
	if err != nil {
		var te *domain.TransportError
		if raw.StatusCode >= http.StatusBadRequest && errors.As(err, &te) && te.Kind == domain.TransportMalformed {
			err = domain.NewTransportError(domain.TransportStatus, method, fmt.Errorf("HTTP %d: %s", raw.StatusCode, logging.Truncate(string(raw.Body))))
		}
		entry.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Exchange returned a malformed envelope")
		return nil, err
	}

	entry = entry.WithField("duration_ms", time.Since(start).Milliseconds())
	if env.Error != nil {
		entry.WithFields(logrus.Fields{
			"error_code":    env.Error.Code,
			"error_message": env.Error.Message,
		}).Debug("Exchange returned a JSON-RPC error")
		return &Result{RPCError: env.Error}, nil
	}
	entry.WithField("result", logging.Truncate(string(env.Result))).Debug("Exchange completed")
	return &Result{Value: env.Result}, nil
}

// Call sends one request and returns its result. Errors are either a
// *domain.JSONRPCError or a *domain.TransportError.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	res, err := c.Exchange(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if res.RPCError != nil {
		return nil, res.RPCError
	}
	return res.Value, nil
}

// SendRaw sends an arbitrary payload without building or decoding an envelope
func (c *Client) SendRaw(ctx context.Context, payload []byte) (*RawResponse, error) {
	c.logger.WithFields(logrus.Fields{
		"payload":   logging.Truncate(string(payload)),
		"transport": c.transport.Name(),
	}).Debug("Sending raw payload")
	return c.roundTrip(ctx, "raw", payload)
}

// Close closes the underlying transport
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) roundTrip(ctx context.Context, op string, payload []byte) (*RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.breaker == nil {
		raw, err := c.transport.RoundTrip(ctx, payload)
		if err != nil {
			return nil, classify(op, err)
		}
		return raw, nil
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.transport.RoundTrip(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewTransportError(domain.TransportConnection, op, fmt.Errorf("failing fast: %w", err))
		}
		return nil, classify(op, err)
	}
	return out.(*RawResponse), nil
}
