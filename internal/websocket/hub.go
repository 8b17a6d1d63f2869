package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks each user's connections and the exports they have running.
// A user may have several tabs open; every tab gets every update.
type Hub struct {
	clients map[string]map[*Client]bool

	// exports holds the last update of each running export, by user and
	// then workflow, so that a tab opened mid-export catches up.
	exports map[string]map[string]ProgressUpdate

	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	doneOnce   sync.Once

	mutex    sync.RWMutex
	upgrader websocket.Upgrader
	logger   *zerolog.Logger
	now      func() time.Time
}

// Client is one browser connection
type Client struct {
	conn *websocket.Conn

	// Send is the outbound queue; the hub closes it on disconnect
	Send chan []byte

	UserID   string
	Username string
	Hub      *Hub

	ConnectedAt time.Time
	LastPing    time.Time

	// closed is set, under the hub mutex, once Send is closed
	closed bool
}

// Message types exchanged with clients.
const (
	TypeConnection        = "connection"
	TypeImplementProgress = "implement_progress"
	TypeImplementStatus   = "implement_status"
	TypePing              = "ping"
	TypePong              = "pong"
)

// ProgressUpdate reports a calendar export in flight
type ProgressUpdate struct {
	Type string `json:"type"`
	model.ImplementProgress
	Progress  float64   `json:"progress"` // 0-100
	Timestamp time.Time `json:"timestamp"`
}

// Message is any other frame sent to clients
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendQueueSize  = 256

	// An export that has not reported for this long is not replayed.
	staleExport = 10 * time.Minute
)

// NewHub creates a hub. Browser connections are accepted only from
// allowedOrigins; an empty list accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins[o] = true
		}
	}

	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		exports:    make(map[string]map[string]ProgressUpdate),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
		logger: logger.Global(),
		now:    time.Now,
	}
}

// Run serves registrations until ctx ends, then closes every connection
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case <-ctx.Done():
			h.closeAll()
			h.doneOnce.Do(func() { close(h.done) })
			return
		}
	}
}

// registerClient adds the client, greets it and replays the user's
// running exports.
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	metrics.Get().IncrementWSConnection()

	running := h.runningLocked(client.UserID)
	h.logger.Info().
		Str("user_id", client.UserID).
		Int("user_connections", len(h.clients[client.UserID])).
		Int("running_exports", len(running)).
		Msg("WebSocket client registered")

	client.queueLocked(Message{
		Type:      TypeConnection,
		Data:      map[string]interface{}{"status": "connected", "runningExports": len(running)},
		Timestamp: h.now(),
	})
	for _, u := range running {
		client.queueLocked(u)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clients[client.UserID][client] {
		return
	}
	h.dropLocked(client)

	h.logger.Info().
		Str("user_id", client.UserID).
		Int("remaining_connections", len(h.clients[client.UserID])).
		Msg("WebSocket client unregistered")
	logger.AuditWebSocket(context.Background(), logger.AuditActionWSDisconnect, client.UserID, "", map[string]interface{}{
		"connected_for": time.Since(client.ConnectedAt).String(),
	})
}

// dropLocked removes a client and closes its queue. Callers hold h.mutex.
func (h *Hub) dropLocked(client *Client) {
	clients := h.clients[client.UserID]
	delete(clients, client)
	client.closeSend()
	metrics.Get().DecrementWSConnection()

	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.clients {
		for c := range clients {
			h.dropLocked(c)
		}
	}
}

// SendToUser queues message on every connection of userID. Clients whose
// queue is full are disconnected.
func (h *Hub) SendToUser(userID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to marshal message for user")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.sendLocked(userID, data)
}

func (h *Hub) sendLocked(userID string, data []byte) {
	clients := h.clients[userID]
	if len(clients) == 0 {
		h.logger.Debug().Str("user_id", userID).Msg("No WebSocket connections found for user")
		return
	}

	for c := range clients {
		if c.closed {
			continue
		}
		select {
		case c.Send <- data:
			metrics.Get().IncrementWSMessageOut()
		default:
			h.logger.Warn().Str("user_id", userID).Msg("Client queue full, closing connection")
			h.dropLocked(c)
		}
	}
}

func newProgressUpdate(p model.ImplementProgress, at time.Time) ProgressUpdate {
	u := ProgressUpdate{Type: TypeImplementProgress, ImplementProgress: p, Timestamp: at}
	switch {
	case p.Status == model.ImplementCompleted:
		u.Progress = 100
	case p.Total > 0:
		u.Progress = float64(p.Created) / float64(p.Total) * 100
	}
	return u
}

// SendProgress records p as the export's latest state and pushes it to
// the user. Finished exports are forgotten once delivered.
func (h *Hub) SendProgress(userID string, p model.ImplementProgress) {
	u := newProgressUpdate(p, h.now())
	data, err := json.Marshal(u)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to marshal progress update")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if p.Status == model.ImplementRunning {
		if h.exports[userID] == nil {
			h.exports[userID] = make(map[string]ProgressUpdate)
		}
		h.exports[userID][p.WorkflowID] = u
	} else {
		delete(h.exports[userID], p.WorkflowID)
		if len(h.exports[userID]) == 0 {
			delete(h.exports, userID)
		}
	}

	h.sendLocked(userID, data)
}

// NotifyImplementProgress pushes export progress to the user's connections
func (h *Hub) NotifyImplementProgress(userID string, p model.ImplementProgress) {
	h.SendProgress(userID, p)
}

// runningLocked returns the user's fresh running exports and prunes stale ones.
func (h *Hub) runningLocked(userID string) []ProgressUpdate {
	var out []ProgressUpdate
	for wf, u := range h.exports[userID] {
		if h.now().Sub(u.Timestamp) > staleExport {
			delete(h.exports[userID], wf)
			continue
		}
		out = append(out, u)
	}
	if len(h.exports[userID]) == 0 {
		delete(h.exports, userID)
	}
	return out
}

// LatestProgress returns the last update of a running export
func (h *Hub) LatestProgress(userID, workflowID string) (ProgressUpdate, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	u, ok := h.exports[userID][workflowID]
	if !ok || h.now().Sub(u.Timestamp) > staleExport {
		return ProgressUpdate{}, false
	}
	return u, true
}

// GetConnectedUsers returns the IDs of users with at least one connection
func (h *Hub) GetConnectedUsers() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}

// GetUserConnectionCount returns the number of connections of userID
func (h *Hub) GetUserConnectionCount(userID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID])
}

// RunningExports returns how many exports are in flight across all users
func (h *Hub) RunningExports() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, m := range h.exports {
		n += len(m)
	}
	return n
}

// UserExports returns the user's running exports, pruning stale ones.
func (h *Hub) UserExports(userID string) []ProgressUpdate {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.runningLocked(userID)
}
