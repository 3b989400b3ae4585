// README: Side-effect dispatcher. Runs after an order transition has been
// durably committed: system chat message, counterparty notification, agent
// stats, real-time broadcast, and an audit record. None of these may fail
// the transition, so every error here is logged and swallowed.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"dormdrop/internal/audit"
	"dormdrop/internal/modules/chat"
	"dormdrop/internal/modules/notification"
	"dormdrop/internal/modules/order"
	"dormdrop/internal/modules/user"
	"dormdrop/internal/realtime"
	"dormdrop/internal/types"
)

// SystemMessenger writes platform-authored chat messages.
type SystemMessenger interface {
	CreateSystem(ctx context.Context, orderID, senderID types.ID, sysType chat.SystemType, content string) (*chat.Message, error)
}

// Notifier records notifications for recipients.
type Notifier interface {
	Notify(ctx context.Context, recipient types.ID, orderID *types.ID, t notification.Type, title, body string) error
	NotifyMany(ctx context.Context, recipients []types.ID, orderID *types.ID, t notification.Type, title, body string) error
}

// AgentStats mutates delivery agent aggregate counters.
type AgentStats interface {
	RecordDelivery(ctx context.Context, id types.ID, earnings int64) error
	FoldRating(ctx context.Context, id types.ID, rating int) error
}

// AgentFinder lists agents eligible for new-order notifications.
type AgentFinder interface {
	AvailableAgents(ctx context.Context) ([]*user.User, error)
}

// AuditSink receives best-effort transition records; nil disables auditing.
type AuditSink interface {
	Record(ctx context.Context, rec audit.TransitionRecord)
}

type Dispatcher struct {
	messages SystemMessenger
	notifier Notifier
	stats    AgentStats
	agents   AgentFinder
	bus      realtime.Bus
	audit    AuditSink
}

func New(messages SystemMessenger, notifier Notifier, stats AgentStats, agents AgentFinder, bus realtime.Bus, sink AuditSink) *Dispatcher {
	return &Dispatcher{
		messages: messages,
		notifier: notifier,
		stats:    stats,
		agents:   agents,
		bus:      bus,
		audit:    sink,
	}
}

// OrderTransition fans a committed transition out to chat, notifications,
// stats, the event bus, and the audit stream, in that order.
func (d *Dispatcher) OrderTransition(ctx context.Context, t order.Transition) {
	o := t.Order
	switch t.To {
	case order.StatusPending:
		d.notifyAvailableAgents(ctx, o)

	case order.StatusAccepted:
		d.systemMessage(ctx, o, t.Actor.ID, chat.SystemOrderAccepted,
			fmt.Sprintf("Order accepted by %s", t.Actor.Name))
		d.notify(ctx, o.CustomerID, o, notification.TypeOrderAccepted,
			"Order accepted",
			fmt.Sprintf("Your order has been accepted by %s", t.Actor.Name))

	case order.StatusPickedUp:
		d.systemMessage(ctx, o, t.Actor.ID, chat.SystemOrderPickedUp, "Order has been picked up")
		d.notify(ctx, o.CustomerID, o, notification.TypeOrderPickedUp,
			"Order picked up", "Your order has been picked up")

	case order.StatusInTransit:
		d.systemMessage(ctx, o, t.Actor.ID, chat.SystemOrderInTransit, "Order is on the way")
		d.notify(ctx, o.CustomerID, o, notification.TypeOrderInTransit,
			"Order in transit", "Your order is on the way")

	case order.StatusDelivered:
		d.systemMessage(ctx, o, t.Actor.ID, chat.SystemOrderDelivered, "Order has been delivered successfully")
		d.notify(ctx, o.CustomerID, o, notification.TypeOrderDelivered,
			"Order delivered", "Your order has been delivered successfully")
		if o.AssignedTo != nil {
			if err := d.stats.RecordDelivery(ctx, *o.AssignedTo, o.DeliveryFee); err != nil {
				// Affects leaderboard integrity; reconciled from orders on read.
				log.Printf("dispatch: record delivery stats for %s: %v", *o.AssignedTo, err)
			}
		}

	case order.StatusCancelled:
		reason := "Cancelled by customer"
		if o.CancelReason != nil {
			reason = *o.CancelReason
		}
		d.systemMessage(ctx, o, t.Actor.ID, chat.SystemOrderCancelled,
			fmt.Sprintf("Order cancelled: %s", reason))
		if t.PriorAssignee != nil {
			d.notify(ctx, *t.PriorAssignee, o, notification.TypeOrderCancelled,
				"Order cancelled",
				fmt.Sprintf("Order has been cancelled: %s", reason))
		}
	}

	if t.To != order.StatusPending {
		d.broadcastStatus(ctx, o, t)
	}
	d.record(ctx, t)
}

// RatingReceived folds a customer rating into the agent's running average.
func (d *Dispatcher) RatingReceived(ctx context.Context, o *order.Order, rating int) {
	if o.AssignedTo == nil {
		return
	}
	if err := d.stats.FoldRating(ctx, *o.AssignedTo, rating); err != nil {
		log.Printf("dispatch: fold rating for %s: %v", *o.AssignedTo, err)
		return
	}
	d.notify(ctx, *o.AssignedTo, o, notification.TypeRatingReceived,
		"Rating received", fmt.Sprintf("You received a %d-star rating", rating))
}

// LocationUpdated records a tracking breadcrumb in chat and pushes the
// position to everyone watching the order.
func (d *Dispatcher) LocationUpdated(ctx context.Context, o *order.Order, p types.Point, address string) {
	if address == "" {
		address = "Current location"
	}
	var sender types.ID
	if o.AssignedTo != nil {
		sender = *o.AssignedTo
	}
	d.systemMessage(ctx, o, sender, chat.SystemLocationUpdate,
		fmt.Sprintf("Location updated: %s", address))

	err := d.bus.Publish(ctx, realtime.OrderTopic(o.ID), realtime.Event{
		Type:    realtime.EventLocationUpdate,
		OrderID: o.ID,
		Data:    map[string]any{"lat": p.Lat, "lng": p.Lng, "address": address},
	})
	if err != nil {
		log.Printf("dispatch: broadcast location for order %s: %v", o.ID, err)
	}
}

func (d *Dispatcher) notifyAvailableAgents(ctx context.Context, o *order.Order) {
	agents, err := d.agents.AvailableAgents(ctx)
	if err != nil {
		log.Printf("dispatch: list available agents: %v", err)
		return
	}
	recipients := make([]types.ID, 0, len(agents))
	for _, a := range agents {
		recipients = append(recipients, a.ID)
	}
	id := o.ID
	err = d.notifier.NotifyMany(ctx, recipients, &id, notification.TypeOrderCreated,
		"New Delivery Request",
		fmt.Sprintf("New %s delivery from %s to room %s", o.Type, o.From, o.Room))
	if err != nil {
		log.Printf("dispatch: notify agents for order %s: %v", o.ID, err)
	}
}

func (d *Dispatcher) systemMessage(ctx context.Context, o *order.Order, sender types.ID, sysType chat.SystemType, content string) {
	if _, err := d.messages.CreateSystem(ctx, o.ID, sender, sysType, content); err != nil {
		log.Printf("dispatch: system message for order %s: %v", o.ID, err)
	}
}

func (d *Dispatcher) notify(ctx context.Context, recipient types.ID, o *order.Order, t notification.Type, title, body string) {
	id := o.ID
	if err := d.notifier.Notify(ctx, recipient, &id, t, title, body); err != nil {
		log.Printf("dispatch: notification for order %s: %v", o.ID, err)
	}
}

func (d *Dispatcher) broadcastStatus(ctx context.Context, o *order.Order, t order.Transition) {
	ev := realtime.Event{
		Type:    realtime.EventOrderUpdated,
		OrderID: o.ID,
		Data: map[string]any{
			"status":     o.Status,
			"updated_by": t.Actor.Name,
		},
	}
	if err := d.bus.Publish(ctx, realtime.OrderTopic(o.ID), ev); err != nil {
		log.Printf("dispatch: broadcast status for order %s: %v", o.ID, err)
	}
	// Counterparty may not be watching the order; their personal channel
	// gets the status too.
	if err := d.bus.Publish(ctx, realtime.UserTopic(o.CustomerID), ev); err != nil {
		log.Printf("dispatch: broadcast status to customer %s: %v", o.CustomerID, err)
	}
}

func (d *Dispatcher) record(ctx context.Context, t order.Transition) {
	if d.audit == nil {
		return
	}
	d.audit.Record(ctx, audit.TransitionRecord{
		OrderID:   string(t.Order.ID),
		FromState: string(t.From),
		ToState:   string(t.To),
		ActorID:   string(t.Actor.ID),
		ActorRole: string(t.Actor.Role),
		At:        time.Now().UTC(),
	})
}
