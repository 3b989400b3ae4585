// README: Test fakes for the order service: an in-memory store with the same
// conditional-write semantics as the SQL store, a stub agent directory, and a
// no-op dispatcher.
package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"dormdrop/internal/types"
)

type memStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[types.ID]*Order)}
}

func (s *memStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) List(_ context.Context, f ListFilter) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.AssigneeOrPending != nil {
			assigned := o.AssignedTo != nil && *o.AssignedTo == *f.AssigneeOrPending
			if o.Status != StatusPending && !assigned {
				continue
			}
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Type != "" && o.Type != f.Type {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) AcceptPending(_ context.Context, id, agentID types.ID, otp string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != StatusPending {
		return false, nil
	}
	o.Status = StatusAccepted
	o.AssignedTo = &agentID
	o.AcceptedAt = &now
	o.DeliveryOTP = &otp
	o.OTPGeneratedAt = &now
	return true, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, cancelReason *string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if cancelReason != nil {
		o.CancelReason = cancelReason
	}
	switch to {
	case StatusPickedUp:
		o.PickedUpAt = &now
	case StatusInTransit:
		o.InTransitAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
		o.PaymentStatus = PaymentPaid
		o.DeliveryOTP = nil
		o.OTPGeneratedAt = nil
	case StatusCancelled:
		o.CancelledAt = &now
		o.AssignedTo = nil
		o.DeliveryOTP = nil
		o.OTPGeneratedAt = nil
	}
	return true, nil
}

func (s *memStore) SetRating(_ context.Context, id types.ID, side RatingSide, r Rating) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != StatusDelivered {
		return false, nil
	}
	if side == RatingByCustomer {
		if o.CustomerRating != nil {
			return false, nil
		}
		o.CustomerRating = &r
	} else {
		if o.DeliveryRating != nil {
			return false, nil
		}
		o.DeliveryRating = &r
	}
	return true, nil
}

func (s *memStore) SetLocation(_ context.Context, id types.ID, pickup bool, p types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if pickup {
		o.PickupLocation = &p
	} else {
		o.DeliveryLocation = &p
	}
	return nil
}

// otp peeks at the stored code; the service hides it from delivery agents.
func (s *memStore) otp(id types.ID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.DeliveryOTP == nil {
		return ""
	}
	return *o.DeliveryOTP
}

func (s *memStore) backdateOTP(id types.ID, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok && o.OTPGeneratedAt != nil {
		t := o.OTPGeneratedAt.Add(-age)
		o.OTPGeneratedAt = &t
	}
}

type stubAgents struct {
	available bool
}

func (a *stubAgents) IsAvailable(context.Context, types.ID) (bool, error) {
	return a.available, nil
}

type nopDispatcher struct{}

func (nopDispatcher) OrderTransition(context.Context, Transition)           {}
func (nopDispatcher) RatingReceived(context.Context, *Order, int)          {}
func (nopDispatcher) LocationUpdated(context.Context, *Order, types.Point, string) {}

var (
	customer = types.Actor{ID: "c1", Name: "Asha", Role: types.RoleCustomer}
	agent    = types.Actor{ID: "d1", Name: "Ravi", Role: types.RoleDelivery}
	admin    = types.Actor{ID: "adm", Name: "Root", Role: types.RoleAdmin}
)

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, &stubAgents{available: true}, nopDispatcher{}), store
}

func mustCreateOrder(t *testing.T, svc *Service, by types.Actor) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), by, CreateCommand{
		Title: "Biryani from mess",
		Type:  TypeFood,
		From:  "North Mess",
		Room:  "B-214",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func assertStatus(t *testing.T, svc *Service, id types.ID, want Status) {
	t.Helper()
	o, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.Status != want {
		t.Fatalf("status = %s, want %s", o.Status, want)
	}
}
