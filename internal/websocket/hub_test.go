package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/client/mocks"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		UserID:      userID,
		Username:    userID,
		Send:        make(chan []byte, 10),
		Hub:         hub,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}
}

// drainWelcomeMessage drains the welcome message sent during client registration
func drainWelcomeMessage(client *Client) {
	select {
	case <-client.Send:
	case <-time.After(100 * time.Millisecond):
	}
}

func TestImplementProgressProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("progress reaches the owner with the right percentage", prop.ForAll(
		func(total, created int) bool {
			if created > total {
				created = total
			}
			hub := NewHub()
			owner := newTestClient(hub, "owner")
			other := newTestClient(hub, "other")
			hub.registerClient(owner)
			hub.registerClient(other)
			drainWelcomeMessage(owner)
			drainWelcomeMessage(other)

			hub.NotifyImplementProgress("owner", model.ImplementProgress{
				WorkflowID: "wf", Status: "running", Created: created, Total: total,
			})

			select {
			case <-other.Send:
				return false
			default:
			}

			select {
			case msg := <-owner.Send:
				var got ProgressUpdate
				if err := json.Unmarshal(msg, &got); err != nil {
					return false
				}
				want := float64(created) / float64(total) * 100
				return got.Type == TypeImplementProgress &&
					got.WorkflowID == "wf" &&
					got.Created == created &&
					got.Total == total &&
					got.Progress == want
			case <-time.After(100 * time.Millisecond):
				return false
			}
		},
		gen.IntRange(1, 500),
		gen.IntRange(0, 500),
	))

	properties.TestingRun(t)
}

func TestCompletedProgressIsFull(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u")
	hub.registerClient(c)
	drainWelcomeMessage(c)

	hub.SendProgress("u", model.ImplementProgress{Status: "completed"})

	var got ProgressUpdate
	require.NoError(t, json.Unmarshal(<-c.Send, &got))
	assert.Equal(t, 100.0, got.Progress)
}

func TestSlowClientIsDisconnected(t *testing.T) {
	hub := NewHub()
	c := &Client{UserID: "slow", Send: make(chan []byte, 1), Hub: hub}
	hub.registerClient(c) // welcome fills the queue

	hub.SendToUser("slow", Message{Type: "x"})

	assert.Equal(t, 0, hub.GetUserConnectionCount("slow"))
	_, open := <-c.Send
	assert.True(t, open, "queued welcome is still readable")
	_, open = <-c.Send
	assert.False(t, open)
}

func TestConnectionManagement(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.GetConnectionCount())

	c1 := newTestClient(hub, "user1")
	c2 := newTestClient(hub, "user1")
	c3 := newTestClient(hub, "user2")
	hub.registerClient(c1)
	hub.registerClient(c2)
	hub.registerClient(c3)

	assert.Equal(t, 3, hub.GetConnectionCount())
	assert.Equal(t, 2, hub.GetUserConnectionCount("user1"))

	hub.unregisterClient(c1)
	hub.unregisterClient(c1) // second unregister is a no-op
	assert.Equal(t, 1, hub.GetUserConnectionCount("user1"))

	hub.unregisterClient(c2)
	assert.Equal(t, []string{"user2"}, hub.GetConnectedUsers())
}

func TestConcurrentClientRegistration(t *testing.T) {
	hub := NewHub()

	const numClients = 20
	clients := make([]*Client, numClients)
	for i := range clients {
		clients[i] = newTestClient(hub, "concurrent_user")
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.registerClient(c)
		}(c)
	}
	wg.Wait()
	assert.Equal(t, numClients, hub.GetUserConnectionCount("concurrent_user"))

	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			hub.unregisterClient(c)
		}(c)
	}
	wg.Wait()
	assert.Equal(t, 0, hub.GetConnectionCount())
}

func TestServeWSEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockUserResolver(ctrl)
	resolver.EXPECT().GetUser(gomock.Any(), "tok").Return(&client.AuthUser{ID: "u-9", Name: "Sari"}, nil)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", AuthMiddleware(resolver, nil), hub.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=tok"
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var welcome Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, TypeConnection, welcome.Type)

	hub.NotifyImplementProgress("u-9", model.ImplementProgress{WorkflowID: "wf", Status: "running", Created: 1, Total: 4})

	var update ProgressUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, 25.0, update.Progress)
	assert.Equal(t, "wf", update.WorkflowID)
}

func TestServeWSRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub("http://localhost:3000")

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { c.Set("user_id", "u") }, hub.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRunningExportIsReplayedToNewTabs(t *testing.T) {
	hub := NewHub()
	hub.SendProgress("u", model.ImplementProgress{WorkflowID: "wf", Status: model.ImplementRunning, Created: 2, Total: 8})
	assert.Equal(t, 1, hub.RunningExports())

	late := newTestClient(hub, "u")
	hub.registerClient(late)

	var welcome Message
	require.NoError(t, json.Unmarshal(<-late.Send, &welcome))
	assert.Equal(t, TypeConnection, welcome.Type)

	var replay ProgressUpdate
	require.NoError(t, json.Unmarshal(<-late.Send, &replay))
	assert.Equal(t, "wf", replay.WorkflowID)
	assert.Equal(t, 25.0, replay.Progress)

	hub.SendProgress("u", model.ImplementProgress{WorkflowID: "wf", Status: model.ImplementCompleted, Created: 8, Total: 8})
	assert.Zero(t, hub.RunningExports())
	_, ok := hub.LatestProgress("u", "wf")
	assert.False(t, ok)
}

func TestStaleExportIsNotReplayed(t *testing.T) {
	hub := NewHub()
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	hub.now = func() time.Time { return start }
	hub.SendProgress("u", model.ImplementProgress{WorkflowID: "wf", Status: model.ImplementRunning, Total: 3})

	hub.now = func() time.Time { return start.Add(staleExport + time.Second) }
	c := newTestClient(hub, "u")
	hub.registerClient(c)
	drainWelcomeMessage(c)

	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected replay: %s", msg)
	default:
	}
	assert.Zero(t, hub.RunningExports())
}

func TestImplementStatusQuery(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub, "u")
	hub.registerClient(c)
	drainWelcomeMessage(c)

	c.handleMessage([]byte(`{"type":"implement_status","workflowId":"wf"}`))
	var idle Message
	require.NoError(t, json.Unmarshal(<-c.Send, &idle))
	assert.Equal(t, TypeImplementStatus, idle.Type)
	assert.Equal(t, map[string]interface{}{"workflowId": "wf", "status": "idle"}, idle.Data)

	hub.SendProgress("u", model.ImplementProgress{WorkflowID: "wf", Status: model.ImplementRunning, Created: 1, Total: 2})
	<-c.Send

	c.handleMessage([]byte(`{"type":"implement_status","workflowId":"wf"}`))
	var running ProgressUpdate
	require.NoError(t, json.Unmarshal(<-c.Send, &running))
	assert.Equal(t, 50.0, running.Progress)

	c.handleMessage([]byte(`{"type":"ping"}`))
	var pong Message
	require.NoError(t, json.Unmarshal(<-c.Send, &pong))
	assert.Equal(t, TypePong, pong.Type)
}

func TestDroppedClientRepliesAreDiscarded(t *testing.T) {
	hub := NewHub()
	c := &Client{UserID: "slow", Send: make(chan []byte, 1), Hub: hub}
	hub.registerClient(c)
	hub.SendToUser("slow", Message{Type: "x"}) // queue full: the hub drops the client

	require.Equal(t, 0, hub.GetUserConnectionCount("slow"))
	assert.NotPanics(t, func() {
		c.handleMessage([]byte(`{"type":"ping"}`))
		c.handleMessage([]byte(`{"type":"implement_status","workflowId":"wf"}`))
	})
}

func TestRepliesAfterShutdownAreDiscarded(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := newTestClient(hub, "u")
	hub.register <- c
	cancel()
	<-stopped

	assert.NotPanics(t, func() { c.handleMessage([]byte(`{"type":"ping"}`)) })

	// A pump exiting after shutdown must not block on unregister.
	unregistered := make(chan struct{})
	go func() {
		c.leave()
		close(unregistered)
	}()
	select {
	case <-unregistered:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after the hub stopped")
	}
}
