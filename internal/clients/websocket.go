package clients

import (
	"context"
	"fmt"

	ws "debtster-collection/internal/transport/websocket"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// PublishCycleEvent pushes a collection run event to the tenant's subscribers.
func (c *WebSocketClient) PublishCycleEvent(ctx context.Context, tenantID string, event string, payload any) error {
	if c == nil || c.hub == nil {
		return nil
	}

	channel := "collection_runs"
	if tenantID != "" {
		channel = fmt.Sprintf("collection_runs#%s", tenantID)
	}

	c.hub.Broadcast(tenantID, &ws.Message{
		Type:    event,
		Channel: channel,
		Data:    payload,
	})
	return nil
}
