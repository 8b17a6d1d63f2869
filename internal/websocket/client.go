package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ServeWS upgrades an authenticated request and starts the client pumps
func (h *Hub) ServeWS(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Success: false, Error: "user not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to upgrade WebSocket connection")
		return
	}

	now := h.now()
	client := &Client{
		conn:        conn,
		Send:        make(chan []byte, sendQueueSize),
		UserID:      userID,
		Username:    middleware.Username(c),
		Hub:         h,
		ConnectedAt: now,
		LastPing:    now,
	}
	logger.AuditWebSocket(c.Request.Context(), logger.AuditActionWSConnect, userID, c.ClientIP(), nil)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump is the connection's only reader. It unregisters the client
// when the peer goes away or stops answering pings.
func (c *Client) readPump() {
	defer func() {
		c.leave()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.LastPing = time.Now()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn().Err(err).Str("user_id", c.UserID).Msg("WebSocket connection closed unexpectedly")
			}
			return
		}
		metrics.Get().IncrementWSMessageIn()
		c.handleMessage(data)
	}
}

// leave unregisters the client unless the hub has already stopped.
func (c *Client) leave() {
	select {
	case c.Hub.unregister <- c:
	case <-c.Hub.done:
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// writePump is the connection's only writer: queued frames and pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// inbound is a frame sent by the browser
type inbound struct {
	Type       string `json:"type"`
	WorkflowID string `json:"workflowId,omitempty"`
}

// handleMessage answers pings and export status queries
func (c *Client) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Hub.logger.Debug().Err(err).Str("user_id", c.UserID).Msg("Failed to unmarshal client message")
		return
	}

	switch msg.Type {
	case TypePing:
		c.SendMessage(Message{Type: TypePong, Timestamp: c.Hub.now()})

	case TypeImplementStatus:
		if u, ok := c.Hub.LatestProgress(c.UserID, msg.WorkflowID); ok {
			c.SendMessage(u)
			return
		}
		c.SendMessage(Message{
			Type:      TypeImplementStatus,
			Data:      map[string]string{"workflowId": msg.WorkflowID, "status": "idle"},
			Timestamp: c.Hub.now(),
		})

	default:
		c.Hub.logger.Debug().Str("user_id", c.UserID).Str("message_type", msg.Type).Msg("Unknown message type received from client")
	}
}

// SendMessage queues a message for this client only. A full queue drops
// it; a client the hub has already dropped gets nothing.
func (c *Client) SendMessage(message interface{}) {
	c.Hub.mutex.RLock()
	defer c.Hub.mutex.RUnlock()
	c.queueLocked(message)
}

// queueLocked is SendMessage for callers holding the hub mutex.
func (c *Client) queueLocked(message interface{}) {
	if c.closed {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		c.Hub.logger.Error().Err(err).Str("user_id", c.UserID).Msg("Failed to marshal message for client")
		return
	}

	select {
	case c.Send <- data:
		metrics.Get().IncrementWSMessageOut()
	default:
		c.Hub.logger.Warn().Str("user_id", c.UserID).Msg("Client queue full, dropping message")
	}
}

// closeSend closes the queue once. Callers hold the hub mutex for writing.
func (c *Client) closeSend() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
