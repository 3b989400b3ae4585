// README: Chat service tests: participation checks, validation, read state,
// and system message broadcast.
package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormdrop/internal/modules/order"
	"dormdrop/internal/realtime"
	"dormdrop/internal/types"
)

type memStore struct {
	seq      int64
	messages []*Message
}

func (s *memStore) Insert(_ context.Context, m *Message) error {
	s.seq++
	m.Seq = s.seq
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *memStore) Get(_ context.Context, id types.ID) (*Message, error) {
	for _, m := range s.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ListByOrder(_ context.Context, orderID types.ID, limit, offset int) ([]*Message, error) {
	var out []*Message
	for _, m := range s.messages {
		if m.OrderID == orderID {
			cp := *m
			out = append(out, &cp)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) MarkRead(_ context.Context, id types.ID, at time.Time) error {
	for _, m := range s.messages {
		if m.ID == id {
			m.IsRead = true
			m.ReadAt = &at
			return nil
		}
	}
	return ErrNotFound
}

func (s *memStore) MarkAllRead(_ context.Context, orderID, readerID types.ID, at time.Time) error {
	for _, m := range s.messages {
		if m.OrderID == orderID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &at
		}
	}
	return nil
}

func (s *memStore) UnreadCountForUser(_ context.Context, userID types.ID, _ types.Role) (int64, error) {
	var n int64
	for _, m := range s.messages {
		if !m.IsRead && m.SenderID != userID {
			n++
		}
	}
	return n, nil
}

type fakeOrders struct {
	orders map[types.ID]*order.Order
}

func (f *fakeOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

var (
	chatCustomer = types.Actor{ID: "c1", Name: "Asha", Role: types.RoleCustomer}
	chatAgent    = types.Actor{ID: "d1", Name: "Ravi", Role: types.RoleDelivery}
	chatAdmin    = types.Actor{ID: "adm", Name: "Root", Role: types.RoleAdmin}
	chatStranger = types.Actor{ID: "c2", Name: "Zed", Role: types.RoleCustomer}
)

func newChatFixture() (*Service, *memStore, *realtime.MemoryBus) {
	agentID := types.ID("d1")
	store := &memStore{}
	orders := &fakeOrders{orders: map[types.ID]*order.Order{
		"o1": {ID: "o1", CustomerID: "c1", AssignedTo: &agentID, Status: order.StatusAccepted},
	}}
	bus := realtime.NewMemoryBus()
	return NewService(store, orders, bus), store, bus
}

func TestSendValidation(t *testing.T) {
	svc, _, _ := newChatFixture()
	ctx := context.Background()

	_, err := svc.Send(ctx, chatCustomer, "o1", "", TypeText)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Send(ctx, chatCustomer, "o1", strings.Repeat("a", 1001), TypeText)
	assert.ErrorIs(t, err, ErrBadRequest)

	// Clients may not forge system messages.
	_, err = svc.Send(ctx, chatCustomer, "o1", "hello", TypeSystem)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Send(ctx, chatStranger, "o1", "hello", TypeText)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.Send(ctx, chatCustomer, "missing", "hello", TypeText)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestSendBroadcasts(t *testing.T) {
	svc, _, bus := newChatFixture()
	ctx := context.Background()

	events, cancel := bus.Subscribe(ctx, realtime.OrderTopic("o1"))
	defer cancel()

	m, err := svc.Send(ctx, chatCustomer, "o1", "where are you?", "")
	require.NoError(t, err)
	assert.Equal(t, TypeText, m.Type)
	assert.NotEmpty(t, m.ID)

	select {
	case ev := <-events:
		assert.Equal(t, realtime.EventNewMessage, ev.Type)
		assert.Equal(t, "where are you?", ev.Data["content"])
	default:
		t.Fatal("no new_message event on the order topic")
	}
}

func TestConversationMarksRead(t *testing.T) {
	svc, store, _ := newChatFixture()
	ctx := context.Background()

	_, err := svc.Send(ctx, chatCustomer, "o1", "hi", TypeText)
	require.NoError(t, err)
	_, err = svc.Send(ctx, chatAgent, "o1", "on my way", TypeText)
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, chatCustomer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	msgs, err := svc.Conversation(ctx, chatCustomer, "o1", 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	unread, err = svc.UnreadCount(ctx, chatCustomer)
	require.NoError(t, err)
	assert.Zero(t, unread, "reading the conversation marks the counterpart's messages read")

	// The agent's own message stays unread for them until the customer reads it;
	// their unread count only covers messages from others.
	unread, err = svc.UnreadCount(ctx, chatAgent)
	require.NoError(t, err)
	assert.Zero(t, unread)
	_ = store
}

func TestMarkReadGuards(t *testing.T) {
	svc, _, _ := newChatFixture()
	ctx := context.Background()

	m, err := svc.Send(ctx, chatCustomer, "o1", "hi", TypeText)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(ctx, chatCustomer, m.ID), ErrOwnMessage)
	assert.ErrorIs(t, svc.MarkRead(ctx, chatAgent, "missing"), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, chatAgent, m.ID))
}

func TestCreateSystemMessage(t *testing.T) {
	svc, store, _ := newChatFixture()
	ctx := context.Background()

	m, err := svc.CreateSystem(ctx, "o1", "d1", SystemOrderAccepted, "Order accepted by Ravi")
	require.NoError(t, err)
	assert.Equal(t, TypeSystem, m.Type)
	require.NotNil(t, m.SystemType)
	assert.Equal(t, SystemOrderAccepted, *m.SystemType)
	require.Len(t, store.messages, 1)
}

func TestAdminIsAlwaysParticipant(t *testing.T) {
	svc, _, _ := newChatFixture()
	_, err := svc.Send(context.Background(), chatAdmin, "o1", "support here", TypeText)
	require.NoError(t, err)
}

func TestTypingPublishesEphemeralEvent(t *testing.T) {
	svc, store, bus := newChatFixture()
	ctx := context.Background()

	events, cancel := bus.Subscribe(ctx, realtime.OrderTopic("o1"))
	defer cancel()

	require.NoError(t, svc.Typing(ctx, chatAgent, "o1", true))
	select {
	case ev := <-events:
		assert.Equal(t, realtime.EventUserTyping, ev.Type)
	default:
		t.Fatal("no typing event")
	}

	require.NoError(t, svc.Typing(ctx, chatAgent, "o1", false))
	select {
	case ev := <-events:
		assert.Equal(t, realtime.EventUserStoppedTyping, ev.Type)
	default:
		t.Fatal("no stopped-typing event")
	}

	assert.Empty(t, store.messages, "typing indicators are never persisted")
}
