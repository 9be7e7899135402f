// Package mockserver is an in-process reference server speaking the protocol
// the compliance runner checks. It backs the runner's self-tests and the
// mock-server binary.
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mcp-compliance-runner/internal/domain"
	"github.com/mcp-compliance-runner/internal/mcp/protocol"
	"github.com/mcp-compliance-runner/internal/middleware"
	"github.com/sirupsen/logrus"
)

// maxRequestBytes caps the size of a JSON-RPC request body
const maxRequestBytes = 4 << 20

// Server represents the mock HTTP server
type Server struct {
	cfg          domain.MockConfig
	logger       *logrus.Logger
	core         *protocol.ProtocolCore
	capabilities *protocol.CapabilityManager
	limiter      *protocol.RateLimiter
	state        *State
	router       *gin.Engine
	server       *http.Server
	upgrader     websocket.Upgrader
}

// NewServer creates a mock server with every method registered
func NewServer(cfg domain.MockConfig, logger *logrus.Logger) (*Server, error) {
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	capabilities := protocol.NewCapabilityManager(logger)
	s := &Server{
		cfg:          cfg,
		logger:       logger,
		capabilities: capabilities,
		core:         protocol.NewProtocolCore(logger, capabilities),
		limiter:      protocol.NewRateLimiter(logger, cfg.RateLimitPerMinute),
		state:        NewState(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	subscriptions, err := NewSubscriptions(cfg.SubscriptionCapacity)
	if err != nil {
		return nil, err
	}
	prompts := NewPromptManager(logger, s.state, cfg.PageSize)
	resources := NewResourceManager(logger, s.state, cfg.PageSize, subscriptions)
	tools, err := NewToolManager(logger, s.state, cfg.PageSize, s.limiter)
	if err != nil {
		return nil, err
	}

	s.core.Register(&capabilityHandler{capabilities: capabilities})
	s.core.Register(prompts)
	s.core.Register(resources)
	s.core.Register(tools)
	s.core.Register(NewCompletionManager(logger, prompts, resources))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(logger))
	s.router = router
	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Capabilities returns the capability manager so callers can withdraw features
func (s *Server) Capabilities() *protocol.CapabilityManager {
	return s.capabilities
}

// State returns the admin-controlled switches
func (s *Server) State() *State {
	return s.state
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", addr).Info("Starting mock server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("mock server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down mock server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the routes
func (s *Server) setupRoutes() {
	s.router.POST("/", s.handleRPC)
	s.router.GET("/ws", s.handleWebSocket)
	s.router.POST("/admin/config", s.handleAdminConfig)
	s.router.GET("/healthcheck", s.handleHealth)
}

// handleRPC answers one JSON-RPC request posted to the root endpoint
func (s *Server) handleRPC(c *gin.Context) {
	if s.state.ConsumeInvalidJSON() {
		c.Data(http.StatusBadRequest, "text/plain; charset=utf-8", []byte("Not a valid JSON"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, protocol.NewErrorResponse(nil, protocol.ParseError, "Parse error", "could not read request body"))
		return
	}

	if !s.delay(c.Request.Context()) {
		return
	}

	resp := s.core.ProcessMessage(c.Request.Context(), c.GetString(middleware.CorrelationIDKey), body)
	if resp.Error != nil && resp.Error.Code == protocol.ParseError {
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// delay sleeps for the configured slow delay when slow responses are on.
// It returns false when the request was cancelled meanwhile.
func (s *Server) delay(ctx context.Context) bool {
	if !s.state.SlowResponse() {
		return true
	}
	timer := time.NewTimer(s.cfg.SlowDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleAdminConfig toggles the simulated failure modes
func (s *Server) handleAdminConfig(c *gin.Context) {
	var cfg AdminConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.state.Apply(cfg)

	s.logger.WithField("config", s.state.Snapshot()).Info("Mock server configuration updated")
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"config": s.state.Snapshot(),
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"methods":     s.core.Methods(),
		"rate_limits": s.limiter.GetStats(),
	})
}
