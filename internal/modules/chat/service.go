// README: Chat service: per-order conversations, read state, typing
// indicators, and system messages written by the side-effect dispatcher.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dormdrop/internal/modules/order"
	"dormdrop/internal/realtime"
	"dormdrop/internal/types"
)

var (
	ErrNotFound       = errors.New("message not found")
	ErrNotParticipant = errors.New("not a participant of this order")
	ErrOwnMessage     = errors.New("cannot mark your own message as read")
	ErrBadRequest     = errors.New("bad message request")
)

type Storage interface {
	Insert(ctx context.Context, m *Message) error
	Get(ctx context.Context, id types.ID) (*Message, error)
	ListByOrder(ctx context.Context, orderID types.ID, limit, offset int) ([]*Message, error)
	MarkRead(ctx context.Context, id types.ID, at time.Time) error
	MarkAllRead(ctx context.Context, orderID, readerID types.ID, at time.Time) error
	UnreadCountForUser(ctx context.Context, userID types.ID, role types.Role) (int64, error)
}

// Orders resolves an order so participation can be checked.
type Orders interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
}

type Service struct {
	store  Storage
	orders Orders
	bus    realtime.Bus
}

func NewService(store Storage, orders Orders, bus realtime.Bus) *Service {
	return &Service{store: store, orders: orders, bus: bus}
}

// Send appends a human message to an order's conversation and broadcasts it
// to the order topic.
func (s *Service) Send(ctx context.Context, actor types.Actor, orderID types.ID, content string, msgType Type) (*Message, error) {
	if content == "" || len(content) > 1000 {
		return nil, ErrBadRequest
	}
	if msgType == "" {
		msgType = TypeText
	}
	if msgType == TypeSystem {
		return nil, ErrBadRequest
	}
	if err := s.checkParticipant(ctx, actor, orderID); err != nil {
		return nil, err
	}

	m := &Message{
		ID:        types.ID(uuid.NewString()),
		OrderID:   orderID,
		SenderID:  actor.ID,
		Content:   content,
		Type:      msgType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}
	s.broadcast(ctx, m, actor.Name)
	return m, nil
}

// CreateSystem writes a platform-authored message describing a transition.
// Only the side-effect dispatcher calls this.
func (s *Service) CreateSystem(ctx context.Context, orderID, senderID types.ID, sysType SystemType, content string) (*Message, error) {
	m := &Message{
		ID:         types.ID(uuid.NewString()),
		OrderID:    orderID,
		SenderID:   senderID,
		Content:    content,
		Type:       TypeSystem,
		SystemType: &sysType,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}
	s.broadcast(ctx, m, "system")
	return m, nil
}

// Conversation returns an order's messages in creation order and marks the
// counterpart's messages read for the caller.
func (s *Service) Conversation(ctx context.Context, actor types.Actor, orderID types.ID, limit, page int) ([]*Message, error) {
	if err := s.checkParticipant(ctx, actor, orderID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	msgs, err := s.store.ListByOrder(ctx, orderID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkAllRead(ctx, orderID, actor.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Service) MarkRead(ctx context.Context, actor types.Actor, messageID types.ID) error {
	m, err := s.store.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID == actor.ID {
		return ErrOwnMessage
	}
	if err := s.checkParticipant(ctx, actor, m.OrderID); err != nil {
		return err
	}
	return s.store.MarkRead(ctx, messageID, time.Now().UTC())
}

func (s *Service) UnreadCount(ctx context.Context, actor types.Actor) (int64, error) {
	return s.store.UnreadCountForUser(ctx, actor.ID, actor.Role)
}

// Typing publishes an ephemeral typing indicator; nothing is persisted.
func (s *Service) Typing(ctx context.Context, actor types.Actor, orderID types.ID, typing bool) error {
	if err := s.checkParticipant(ctx, actor, orderID); err != nil {
		return err
	}
	evType := realtime.EventUserTyping
	if !typing {
		evType = realtime.EventUserStoppedTyping
	}
	return s.bus.Publish(ctx, realtime.OrderTopic(orderID), realtime.Event{
		Type:    evType,
		OrderID: orderID,
		Data:    map[string]any{"user_id": actor.ID, "user_name": actor.Name},
	})
}

func (s *Service) checkParticipant(ctx context.Context, actor types.Actor, orderID types.ID) error {
	if actor.IsAdmin() {
		return nil
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.CustomerID == actor.ID {
		return nil
	}
	if o.AssignedTo != nil && *o.AssignedTo == actor.ID {
		return nil
	}
	return ErrNotParticipant
}

func (s *Service) broadcast(ctx context.Context, m *Message, senderName string) {
	ev := realtime.Event{
		Type:    realtime.EventNewMessage,
		OrderID: m.OrderID,
		Data: map[string]any{
			"message_id":  m.ID,
			"sender_id":   m.SenderID,
			"sender_name": senderName,
			"content":     m.Content,
			"msg_type":    m.Type,
			"created_at":  m.CreatedAt,
		},
	}
	// Best-effort: a failed broadcast never fails the write.
	_ = s.bus.Publish(ctx, realtime.OrderTopic(m.OrderID), ev)
}
