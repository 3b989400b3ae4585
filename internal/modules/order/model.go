// README: Order aggregate, status definitions, and the transition table.
package order

import (
	"time"

	"dormdrop/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPickedUp  Status = "picked-up"
	StatusInTransit Status = "in-transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type OrderType string

const (
	TypeParcel OrderType = "parcel"
	TypeFood   OrderType = "food"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Delivery fees are fixed at creation by order type.
const (
	FeeFood   int64 = 20
	FeeParcel int64 = 15
)

type Rating struct {
	Rating  int
	Comment string
	RatedAt time.Time
}

type Order struct {
	ID                  types.ID
	Title               string
	Type                OrderType
	From                string
	Room                string
	Description         string
	Priority            string
	SpecialInstructions string
	CustomerID          types.ID
	AssignedTo          *types.ID
	Status              Status
	DeliveryFee         int64
	PaymentStatus       PaymentStatus
	DeliveryOTP         *string
	OTPGeneratedAt      *time.Time
	PickupLocation      *types.Point
	DeliveryLocation    *types.Point
	CustomerRating      *Rating
	DeliveryRating      *Rating
	CancelReason        *string
	CreatedAt           time.Time
	AcceptedAt          *time.Time
	PickedUpAt          *time.Time
	InTransitAt         *time.Time
	DeliveredAt         *time.Time
	CancelledAt         *time.Time
}

// AllowedTransitions represents the order state flow as code. Advancement is
// strictly sequential; cancellation is only possible before physical custody
// changes hands (pending or accepted).
var AllowedTransitions = map[Status][]Status{
	StatusNone:      {StatusPending},
	StatusPending:   {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit},
	StatusInTransit: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// DefaultFee returns the fixed delivery fee for an order type.
func DefaultFee(t OrderType) int64 {
	if t == TypeFood {
		return FeeFood
	}
	return FeeParcel
}

type TimelineEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Timeline lists the transitions this order actually took, in order.
func (o *Order) Timeline() []TimelineEntry {
	timeline := []TimelineEntry{{Status: StatusPending, Timestamp: o.CreatedAt, Message: "Order created"}}
	if o.AcceptedAt != nil {
		timeline = append(timeline, TimelineEntry{Status: StatusAccepted, Timestamp: *o.AcceptedAt, Message: "Order accepted by delivery student"})
	}
	if o.PickedUpAt != nil {
		timeline = append(timeline, TimelineEntry{Status: StatusPickedUp, Timestamp: *o.PickedUpAt, Message: "Order picked up"})
	}
	if o.InTransitAt != nil {
		timeline = append(timeline, TimelineEntry{Status: StatusInTransit, Timestamp: *o.InTransitAt, Message: "Order is on the way"})
	}
	if o.DeliveredAt != nil {
		timeline = append(timeline, TimelineEntry{Status: StatusDelivered, Timestamp: *o.DeliveredAt, Message: "Order delivered successfully"})
	}
	if o.CancelledAt != nil {
		msg := "Order cancelled"
		if o.CancelReason != nil {
			msg = "Order cancelled: " + *o.CancelReason
		}
		timeline = append(timeline, TimelineEntry{Status: StatusCancelled, Timestamp: *o.CancelledAt, Message: msg})
	}
	return timeline
}
