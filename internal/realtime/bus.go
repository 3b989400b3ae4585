// README: Topic-keyed publish/subscribe abstraction for real-time fan-out.
// Delivery is at-most-once and best-effort; disconnected clients re-fetch
// state on reconnect instead of replaying missed events.
package realtime

import (
	"context"
	"fmt"

	"dormdrop/internal/types"
)

// Event types pushed to connected clients.
const (
	EventNewMessage        = "new_message"
	EventOrderUpdated      = "order_updated"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventLocationUpdate    = "delivery_location_update"
)

type Event struct {
	Type    string         `json:"type"`
	OrderID types.ID       `json:"order_id,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Bus broadcasts events to topic subscribers. Subscribe returns a receive
// channel and a cancel function; after cancel the channel is closed.
type Bus interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topics ...string) (<-chan Event, func())
}

// UserTopic is the personal channel every client joins on connect.
func UserTopic(id types.ID) string {
	return fmt.Sprintf("user:%s", string(id))
}

// OrderTopic is joined on demand while a client views an order's chat.
func OrderTopic(id types.ID) string {
	return fmt.Sprintf("order:%s", string(id))
}
