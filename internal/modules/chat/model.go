// README: Chat message model. Every message belongs to exactly one order;
// system messages mirror the transition that produced them.
package chat

import (
	"time"

	"dormdrop/internal/types"
)

type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeLocation Type = "location"
	TypeSystem   Type = "system"
)

// SystemType tags a system message with the order transition behind it.
type SystemType string

const (
	SystemOrderAccepted  SystemType = "order-accepted"
	SystemOrderPickedUp  SystemType = "order-picked-up"
	SystemOrderInTransit SystemType = "order-in-transit"
	SystemOrderDelivered SystemType = "order-delivered"
	SystemOrderCancelled SystemType = "order-cancelled"
	SystemLocationUpdate SystemType = "location-update"
)

type Message struct {
	// Seq is the append-only per-order ordering key.
	Seq        int64
	ID         types.ID
	OrderID    types.ID
	SenderID   types.ID
	Content    string
	Type       Type
	SystemType *SystemType
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}
