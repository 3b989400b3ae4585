// README: Order service tests (state machine, flow, guards, ratings).
package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"dormdrop/internal/types"
)

// TestCanTransition verifies the transition table without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusNone, StatusPending, true},
		{StatusPending, StatusAccepted, true},
		{StatusAccepted, StatusPickedUp, true},
		{StatusPickedUp, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		// cancels only before custody changes hands
		{StatusPending, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusPickedUp, StatusCancelled, false},
		{StatusInTransit, StatusCancelled, false},
		// invalid: skipping states
		{StatusPending, StatusPickedUp, false},
		{StatusAccepted, StatusInTransit, false},
		{StatusAccepted, StatusDelivered, false},
		{StatusPickedUp, StatusDelivered, false},
		// invalid: backwards
		{StatusInTransit, StatusPickedUp, false},
		{StatusAccepted, StatusPending, false},
		// invalid: terminal states have no outgoing transitions
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusAccepted, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderFlowHappyPath(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o := mustCreateOrder(t, svc, customer)
	assertStatus(t, svc, o.ID, StatusPending)
	if o.DeliveryFee != FeeFood {
		t.Fatalf("fee = %d, want %d", o.DeliveryFee, FeeFood)
	}

	accepted, err := svc.Accept(ctx, agent, o.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.AssignedTo == nil || *accepted.AssignedTo != agent.ID {
		t.Fatalf("assigned_to = %v, want %s", accepted.AssignedTo, agent.ID)
	}
	if accepted.DeliveryOTP == nil || len(*accepted.DeliveryOTP) != 4 {
		t.Fatalf("expected a 4-digit OTP after accept, got %v", accepted.DeliveryOTP)
	}

	if _, err := svc.Advance(ctx, agent, o.ID, StatusPickedUp, ""); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	assertStatus(t, svc, o.ID, StatusPickedUp)

	if _, err := svc.Advance(ctx, agent, o.ID, StatusInTransit, ""); err != nil {
		t.Fatalf("in transit: %v", err)
	}
	assertStatus(t, svc, o.ID, StatusInTransit)

	delivered, err := svc.Advance(ctx, agent, o.ID, StatusDelivered, store.otp(o.ID))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", delivered.Status)
	}
	if delivered.PaymentStatus != PaymentPaid {
		t.Fatalf("payment = %s, want paid", delivered.PaymentStatus)
	}
	if delivered.DeliveryOTP != nil {
		t.Fatal("OTP must be cleared once the order is delivered")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  CreateCommand
	}{
		{"missing title", CreateCommand{Type: TypeFood, From: "Mess", Room: "A1"}},
		{"missing pickup", CreateCommand{Title: "x", Type: TypeFood, Room: "A1"}},
		{"missing room", CreateCommand{Title: "x", Type: TypeFood, From: "Mess"}},
		{"bad type", CreateCommand{Title: "x", Type: "drone", From: "Mess", Room: "A1"}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, customer, tc.cmd); !errors.Is(err, ErrBadRequest) {
			t.Errorf("%s: err = %v, want ErrBadRequest", tc.name, err)
		}
	}

	if _, err := svc.Create(ctx, agent, CreateCommand{Title: "x", Type: TypeFood, From: "Mess", Room: "A1"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("delivery agent creating order: err = %v, want ErrUnauthorized", err)
	}

	o, err := svc.Create(ctx, customer, CreateCommand{Title: "Parcel", Type: TypeParcel, From: "Gate", Room: "A1"})
	if err != nil {
		t.Fatalf("create parcel: %v", err)
	}
	if o.DeliveryFee != FeeParcel {
		t.Errorf("parcel fee = %d, want %d", o.DeliveryFee, FeeParcel)
	}
	if o.Priority != "normal" {
		t.Errorf("priority = %q, want normal default", o.Priority)
	}
}

func TestAcceptGuards(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	o := mustCreateOrder(t, svc, customer)

	if _, err := svc.Accept(ctx, customer, o.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("customer accepting: err = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Accept(ctx, agent, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("accept missing order: err = %v, want ErrNotFound", err)
	}

	if _, err := svc.Accept(ctx, agent, o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	other := types.Actor{ID: "d2", Name: "Meera", Role: types.RoleDelivery}
	if _, err := svc.Accept(ctx, other, o.ID); !errors.Is(err, ErrNotAcceptable) {
		t.Errorf("accept non-pending: err = %v, want ErrNotAcceptable", err)
	}
}

func TestAcceptUnavailableAgent(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &stubAgents{available: false}, nopDispatcher{})
	o := mustCreateOrder(t, svc, customer)

	if _, err := svc.Accept(context.Background(), agent, o.ID); !errors.Is(err, ErrAgentUnavailable) {
		t.Fatalf("err = %v, want ErrAgentUnavailable", err)
	}
	assertStatus(t, svc, o.ID, StatusPending)
}

func TestAdvanceGuards(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	o := mustCreateOrder(t, svc, customer)
	if _, err := svc.Accept(ctx, agent, o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.Advance(ctx, agent, o.ID, StatusAccepted, ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("advance to accepted: err = %v, want ErrBadRequest", err)
	}
	if _, err := svc.Advance(ctx, agent, o.ID, StatusInTransit, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("skip picked-up: err = %v, want ErrInvalidState", err)
	}
	other := types.Actor{ID: "d2", Name: "Meera", Role: types.RoleDelivery}
	if _, err := svc.Advance(ctx, other, o.ID, StatusPickedUp, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-assignee advancing: err = %v, want ErrUnauthorized", err)
	}

	if _, err := svc.Advance(ctx, agent, o.ID, StatusPickedUp, ""); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if _, err := svc.Advance(ctx, agent, o.ID, StatusInTransit, ""); err != nil {
		t.Fatalf("in transit: %v", err)
	}

	if _, err := svc.Advance(ctx, agent, o.ID, StatusDelivered, "0000x"); !errors.Is(err, ErrOTPMismatch) {
		t.Errorf("wrong otp: err = %v, want ErrOTPMismatch", err)
	}
	assertStatus(t, svc, o.ID, StatusInTransit)

	store.backdateOTP(o.ID, OTPValidity+time.Second)
	if _, err := svc.Advance(ctx, agent, o.ID, StatusDelivered, store.otp(o.ID)); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("expired otp: err = %v, want ErrOTPExpired", err)
	}
}

func TestCancel(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	o := mustCreateOrder(t, svc, customer)
	stranger := types.Actor{ID: "c2", Name: "Zed", Role: types.RoleCustomer}
	if _, err := svc.Cancel(ctx, stranger, o.ID, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger cancelling: err = %v, want ErrUnauthorized", err)
	}

	cancelled, err := svc.Cancel(ctx, customer, o.ID, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelReason == nil || *cancelled.CancelReason != "Cancelled by customer" {
		t.Errorf("cancel reason = %v, want default", cancelled.CancelReason)
	}

	// Assignment is released on cancel after accept.
	o2 := mustCreateOrder(t, svc, customer)
	if _, err := svc.Accept(ctx, agent, o2.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	c2, err := svc.Cancel(ctx, customer, o2.ID, "changed my mind")
	if err != nil {
		t.Fatalf("cancel accepted: %v", err)
	}
	if c2.AssignedTo != nil {
		t.Error("assignment must be released on cancel")
	}
	if c2.DeliveryOTP != nil {
		t.Error("OTP must be cleared on cancel")
	}

	// Too late once the agent has the goods.
	o3 := mustCreateOrder(t, svc, customer)
	if _, err := svc.Accept(ctx, agent, o3.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Advance(ctx, agent, o3.ID, StatusPickedUp, ""); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if _, err := svc.Cancel(ctx, customer, o3.ID, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("cancel after pickup: err = %v, want ErrInvalidState", err)
	}
}

func TestRateOneShot(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	o := mustCreateOrder(t, svc, customer)
	if _, err := svc.Rate(ctx, customer, o.ID, 5, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("rating pending order: err = %v, want ErrInvalidState", err)
	}

	deliverOrder(t, svc, store, o.ID)

	if _, err := svc.Rate(ctx, customer, o.ID, 0, ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("rating 0: err = %v, want ErrBadRequest", err)
	}
	if _, err := svc.Rate(ctx, customer, o.ID, 6, ""); !errors.Is(err, ErrBadRequest) {
		t.Errorf("rating 6: err = %v, want ErrBadRequest", err)
	}
	stranger := types.Actor{ID: "c2", Name: "Zed", Role: types.RoleCustomer}
	if _, err := svc.Rate(ctx, stranger, o.ID, 4, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger rating: err = %v, want ErrUnauthorized", err)
	}

	rated, err := svc.Rate(ctx, customer, o.ID, 4, "quick")
	if err != nil {
		t.Fatalf("customer rate: %v", err)
	}
	if rated.CustomerRating == nil || rated.CustomerRating.Rating != 4 {
		t.Fatalf("customer rating = %v, want 4", rated.CustomerRating)
	}
	if _, err := svc.Rate(ctx, customer, o.ID, 5, "better"); !errors.Is(err, ErrAlreadyRated) {
		t.Errorf("second customer rating: err = %v, want ErrAlreadyRated", err)
	}

	// The delivery side has its own slot.
	if _, err := svc.Rate(ctx, agent, o.ID, 5, ""); err != nil {
		t.Fatalf("delivery rate: %v", err)
	}
	if _, err := svc.Rate(ctx, agent, o.ID, 3, ""); !errors.Is(err, ErrAlreadyRated) {
		t.Errorf("second delivery rating: err = %v, want ErrAlreadyRated", err)
	}
}

func TestUpdateLocationLegs(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	o := mustCreateOrder(t, svc, customer)

	if _, err := svc.UpdateLocation(ctx, agent, o.ID, types.Point{Lat: 1, Lng: 2}, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("location before accept: err = %v, want ErrUnauthorized", err)
	}

	if _, err := svc.Accept(ctx, agent, o.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err := svc.UpdateLocation(ctx, agent, o.ID, types.Point{Lat: 12.97, Lng: 77.59}, "Main Gate")
	if err != nil {
		t.Fatalf("location while accepted: %v", err)
	}
	if got.PickupLocation == nil || got.PickupLocation.Lat != 12.97 {
		t.Fatalf("pickup location = %v, want lat 12.97", got.PickupLocation)
	}

	if _, err := svc.Advance(ctx, agent, o.ID, StatusPickedUp, ""); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if _, err := svc.Advance(ctx, agent, o.ID, StatusInTransit, ""); err != nil {
		t.Fatalf("in transit: %v", err)
	}
	got, err = svc.UpdateLocation(ctx, agent, o.ID, types.Point{Lat: 12.98, Lng: 77.60}, "Hostel road")
	if err != nil {
		t.Fatalf("location in transit: %v", err)
	}
	if got.DeliveryLocation == nil || got.DeliveryLocation.Lat != 12.98 {
		t.Fatalf("delivery location = %v, want lat 12.98", got.DeliveryLocation)
	}
}

func TestListVisibility(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mine := mustCreateOrder(t, svc, customer)
	other := types.Actor{ID: "c2", Name: "Zed", Role: types.RoleCustomer}
	theirs := mustCreateOrder(t, svc, other)
	if _, err := svc.Accept(ctx, agent, theirs.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, err := svc.List(ctx, customer, "", "", 0, 0)
	if err != nil {
		t.Fatalf("list as customer: %v", err)
	}
	if len(got) != 1 || got[0].ID != mine.ID {
		t.Fatalf("customer sees %d orders, want only their own", len(got))
	}

	// Agent sees the open pool plus their assignment.
	got, err = svc.List(ctx, agent, "", "", 0, 0)
	if err != nil {
		t.Fatalf("list as agent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("agent sees %d orders, want 2", len(got))
	}

	got, err = svc.List(ctx, admin, "", "", 0, 0)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("admin sees %d orders, want 2", len(got))
	}
}

func TestTimeline(t *testing.T) {
	svc, store := newTestService()
	o := mustCreateOrder(t, svc, customer)
	deliverOrder(t, svc, store, o.ID)

	timeline, err := svc.Timeline(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	want := []Status{StatusPending, StatusAccepted, StatusPickedUp, StatusInTransit, StatusDelivered}
	if len(timeline) != len(want) {
		t.Fatalf("timeline has %d entries, want %d", len(timeline), len(want))
	}
	for i, entry := range timeline {
		if entry.Status != want[i] {
			t.Errorf("timeline[%d] = %s, want %s", i, entry.Status, want[i])
		}
	}
}

func deliverOrder(t *testing.T, svc *Service, store *memStore, id types.ID) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Accept(ctx, agent, id); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.Advance(ctx, agent, id, StatusPickedUp, ""); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if _, err := svc.Advance(ctx, agent, id, StatusInTransit, ""); err != nil {
		t.Fatalf("in transit: %v", err)
	}
	if _, err := svc.Advance(ctx, agent, id, StatusDelivered, store.otp(id)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}
