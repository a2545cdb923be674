package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans collection run events out to websocket subscribers grouped by
// tenant. Subscribers registered with an empty tenant receive every event;
// tenant subscribers only receive events addressed to their tenant.
type Hub struct {
	connections map[string]map[*Connection]bool

	register   chan *Connection
	unregister chan *Connection

	broadcast chan *Message

	mu sync.RWMutex
}

type Connection struct {
	ws       *websocket.Conn
	tenantID string
	send     chan *Message
	hub      *Hub
}

type Message struct {
	TenantID string      `json:"tenant_id,omitempty"`
	Type     string      `json:"type"`
	Channel  string      `json:"channel,omitempty"`
	Data     interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *Message, 256),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.RLock()
			var conns []*Connection
			for _, m := range h.connections {
				for c := range m {
					conns = append(conns, c)
				}
			}
			h.mu.RUnlock()

			// close outside the lock so the pumps can unregister
			for _, c := range conns {
				_ = c.ws.Close()
			}
			return

		case conn := <-h.register:
			h.mu.Lock()
			if h.connections[conn.tenantID] == nil {
				h.connections[conn.tenantID] = make(map[*Connection]bool)
			}
			h.connections[conn.tenantID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(conn)
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for _, conn := range h.targetsLocked(message.TenantID) {
				select {
				case conn.send <- message:
				default:
					h.dropLocked(conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) targetsLocked(tenantID string) []*Connection {
	var out []*Connection
	for key, conns := range h.connections {
		if key != "" && key != tenantID {
			continue
		}
		for c := range conns {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) dropLocked(conn *Connection) {
	connections, ok := h.connections[conn.tenantID]
	if !ok {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.send)
	if len(connections) == 0 {
		delete(h.connections, conn.tenantID)
	}
}

// Subscribers returns the number of open connections for a tenant key.
func (h *Hub) Subscribers(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[tenantID])
}

// Broadcast queues message for the tenant's subscribers and for the
// all-tenant subscribers. An empty tenantID reaches all-tenant subscribers only.
func (h *Hub) Broadcast(tenantID string, message *Message) {
	message.TenantID = tenantID
	select {
	case h.broadcast <- message:
	default:
		log.Printf("[WS] broadcast channel full, dropping %s for tenant %q", message.Type, tenantID)
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, tenantID string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	conn := &Connection{
		ws:       ws,
		tenantID: tenantID,
		send:     make(chan *Message, 256),
		hub:      h,
	}

	h.register <- conn

	go conn.writePump()
	go conn.readPump()
}

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10
)

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
	}()

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			break
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(message); err != nil {
				log.Printf("[WS] write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
