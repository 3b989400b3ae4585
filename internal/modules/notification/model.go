// README: Notification model. Notifications expire (default 30 days) and
// are garbage-collected passively; expiry never blocks a live operation.
package notification

import (
	"time"

	"dormdrop/internal/types"
)

type Type string

const (
	TypeOrderCreated   Type = "order-created"
	TypeOrderAccepted  Type = "order-accepted"
	TypeOrderPickedUp  Type = "order-picked-up"
	TypeOrderInTransit Type = "order-in-transit"
	TypeOrderDelivered Type = "order-delivered"
	TypeOrderCancelled Type = "order-cancelled"
	TypeRatingReceived Type = "rating-received"
)

type Notification struct {
	ID        types.ID
	Recipient types.ID
	OrderID   *types.ID
	Type      Type
	Title     string
	Body      string
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
	ExpiresAt time.Time
}
