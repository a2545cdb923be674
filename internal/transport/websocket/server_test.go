package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, r.URL.Query().Get("tenant_id"))
	}))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, tenantID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:]+"?tenant_id="+tenantID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "tenant-a")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, hub.Subscribers("tenant-a"))

	conn.Close()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, hub.Subscribers("tenant-a"))
}

func TestHub_BroadcastReachesOnlyTenant(t *testing.T) {
	hub, server := startHub(t)

	a := dial(t, server, "tenant-a")
	b := dial(t, server, "tenant-b")
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("tenant-a", &Message{Type: "cycle_step", Channel: "collection_runs", Data: map[string]interface{}{"step": "advance_ladder"}})

	a.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, a.ReadJSON(&got))
	assert.Equal(t, "cycle_step", got.Type)
	assert.Equal(t, "tenant-a", got.TenantID)

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var other Message
	assert.Error(t, b.ReadJSON(&other), "tenant-b must not see tenant-a events")
}

func TestHub_AllTenantSubscriberSeesEverything(t *testing.T) {
	hub, server := startHub(t)

	ops := dial(t, server, "")
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("tenant-a", &Message{Type: "cycle_complete"})

	ops.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, ops.ReadJSON(&got))
	assert.Equal(t, "cycle_complete", got.Type)
}

func TestHub_GlobalEventSkipsTenantSubscribers(t *testing.T) {
	hub, server := startHub(t)

	tenant := dial(t, server, "tenant-a")
	ops := dial(t, server, "")
	require.Eventually(t, func() bool {
		return hub.Subscribers("tenant-a") == 1 && hub.Subscribers("") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("", &Message{Type: "cycle_step", Data: map[string]interface{}{"transitions": []string{"tenant-b-case-42"}}})

	ops.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, ops.ReadJSON(&got))
	assert.Equal(t, "cycle_step", got.Type)

	tenant.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var leaked Message
	assert.Error(t, tenant.ReadJSON(&leaked), "tenant subscriber must not see an all-tenant run")
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()
	hub.broadcast = make(chan *Message, 1)
	hub.broadcast <- &Message{Type: "fill"}

	done := make(chan struct{})
	go func() {
		hub.Broadcast("tenant-a", &Message{Type: "dropped"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full channel")
	}

	msg := <-hub.broadcast
	assert.Equal(t, "fill", msg.Type)
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, "tenant-a")
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(100 * time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
