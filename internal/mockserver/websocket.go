package mockserver

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mcp-compliance-runner/internal/middleware"
	"github.com/sirupsen/logrus"
)

// handleWebSocket serves the same protocol over a WebSocket, one text frame per message
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID := c.GetString(middleware.CorrelationIDKey)
	logger := s.logger.WithField("client_id", clientID)
	logger.Debug("WebSocket client connected")

	ctx := c.Request.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("WebSocket read failed")
			}
			return
		}

		if !s.delay(ctx) {
			return
		}

		resp := s.core.ProcessMessage(ctx, clientID, msg)
		out, err := json.Marshal(resp)
		if err != nil {
			logger.WithError(err).Error("Failed to encode response")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("WebSocket write failed")
			return
		}
	}
}
