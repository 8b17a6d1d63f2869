package handler

import (
	"net/http"

	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/websocket"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler exposes the progress hub over HTTP.
type WebSocketHandler struct {
	hub *websocket.Hub
}

func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleConnection upgrades an authenticated request.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	h.hub.ServeWS(c)
}

// GetConnectionStats reports hub-wide counts.
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data: gin.H{
			"total_connections": h.hub.GetConnectionCount(),
			"connected_users":   len(h.hub.GetConnectedUsers()),
			"running_exports":   h.hub.RunningExports(),
		},
	})
}

// GetUserConnections tells the frontend whether implement progress will reach
// it, and which of the user's exports are still running.
func (h *WebSocketHandler) GetUserConnections(c *gin.Context) {
	userID := middleware.UserID(c)
	n := h.hub.GetUserConnectionCount(userID)

	exports := h.hub.UserExports(userID)
	if exports == nil {
		exports = []websocket.ProgressUpdate{}
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data: gin.H{
			"user_id":          userID,
			"connection_count": n,
			"is_connected":     n > 0,
			"running_exports":  exports,
		},
	})
}
