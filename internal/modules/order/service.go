// README: Order service implements the lifecycle state machine, the claim
// race, and triggers the side-effect pipeline after each committed transition.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"dormdrop/internal/types"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrConflict         = errors.New("order state conflict")
	ErrNotAcceptable    = errors.New("order cannot be accepted")
	ErrAgentUnavailable = errors.New("you are currently unavailable for deliveries")
	ErrUnauthorized     = errors.New("not authorized for this order")
	ErrAlreadyRated     = errors.New("order already rated")
	ErrBadRequest       = errors.New("bad request")
)

// RatingSide selects which one-shot rating slot a Rate call writes.
type RatingSide string

const (
	RatingByCustomer RatingSide = "customer"
	RatingByDelivery RatingSide = "delivery"
)

type ListFilter struct {
	CustomerID        *types.ID
	AssigneeOrPending *types.ID // pending orders plus this agent's assignments
	Status            Status
	Type              OrderType
	Limit             int
	Offset            int
}

// Storage is the persistence collaborator. AcceptPending and UpdateStatus
// must be atomic conditional writes keyed on the current status; a
// check-then-act sequence is not acceptable for either.
type Storage interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]*Order, error)
	AcceptPending(ctx context.Context, id, agentID types.ID, otp string, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, cancelReason *string, now time.Time) (bool, error)
	SetRating(ctx context.Context, id types.ID, side RatingSide, r Rating) (bool, error)
	SetLocation(ctx context.Context, id types.ID, pickup bool, p types.Point) error
}

// AgentDirectory answers availability questions about delivery agents.
type AgentDirectory interface {
	IsAvailable(ctx context.Context, id types.ID) (bool, error)
}

// Transition describes a committed order state change handed to the
// side-effect pipeline.
type Transition struct {
	Order *Order
	From  Status
	To    Status
	Actor types.Actor
	// PriorAssignee is set on cancellation, where the committed row no
	// longer carries the assignment.
	PriorAssignee *types.ID
}

// Dispatcher receives committed transitions. Implementations must not fail
// the transition: the order row is already durable when these run.
type Dispatcher interface {
	OrderTransition(ctx context.Context, t Transition)
	RatingReceived(ctx context.Context, o *Order, rating int)
	LocationUpdated(ctx context.Context, o *Order, p types.Point, address string)
}

type Service struct {
	store    Storage
	agents   AgentDirectory
	dispatch Dispatcher
}

func NewService(store Storage, agents AgentDirectory, dispatch Dispatcher) *Service {
	return &Service{store: store, agents: agents, dispatch: dispatch}
}

type CreateCommand struct {
	Title               string
	Type                OrderType
	From                string
	Room                string
	Description         string
	Priority            string
	SpecialInstructions string
}

func (s *Service) Create(ctx context.Context, actor types.Actor, cmd CreateCommand) (*Order, error) {
	if actor.Role != types.RoleCustomer && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if cmd.Title == "" || cmd.From == "" || cmd.Room == "" {
		return nil, ErrBadRequest
	}
	if cmd.Type != TypeParcel && cmd.Type != TypeFood {
		return nil, ErrBadRequest
	}
	if cmd.Priority == "" {
		cmd.Priority = "normal"
	}

	o := &Order{
		ID:                  newID(),
		Title:               cmd.Title,
		Type:                cmd.Type,
		From:                cmd.From,
		Room:                cmd.Room,
		Description:         cmd.Description,
		Priority:            cmd.Priority,
		SpecialInstructions: cmd.SpecialInstructions,
		CustomerID:          actor.ID,
		Status:              StatusPending,
		DeliveryFee:         DefaultFee(cmd.Type),
		PaymentStatus:       PaymentPending,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.dispatch.OrderTransition(ctx, Transition{Order: o, From: StatusNone, To: StatusPending, Actor: actor})
	return o, nil
}

// Accept resolves the claim race. The guard sequence runs against a freshly
// reloaded record, and the final step is a single conditional update keyed
// on the order still being pending, so racing agents get exactly one winner.
func (s *Service) Accept(ctx context.Context, actor types.Actor, orderID types.ID) (*Order, error) {
	if actor.Role != types.RoleDelivery {
		return nil, ErrUnauthorized
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, ErrNotAcceptable
	}
	available, err := s.agents.IsAvailable(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrAgentUnavailable
	}

	now := time.Now().UTC()
	ok, err := s.store.AcceptPending(ctx, orderID, actor.ID, GenerateOTP(), now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	accepted, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.dispatch.OrderTransition(ctx, Transition{Order: accepted, From: StatusPending, To: StatusAccepted, Actor: actor})
	return accepted, nil
}

// Advance moves an assigned order forward. Only the delivered step carries
// an extra guard: the OTP must verify before the conditional write runs.
func (s *Service) Advance(ctx context.Context, actor types.Actor, orderID types.ID, target Status, otp string) (*Order, error) {
	if target != StatusPickedUp && target != StatusInTransit && target != StatusDelivered {
		return nil, ErrBadRequest
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.isAssignee(o, actor) && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if !CanTransition(o.Status, target) {
		return nil, ErrInvalidState
	}
	now := time.Now().UTC()
	if target == StatusDelivered {
		if err := VerifyOTP(o, otp, now); err != nil {
			return nil, err
		}
	}

	ok, err := s.store.UpdateStatus(ctx, orderID, o.Status, target, nil, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	updated, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.dispatch.OrderTransition(ctx, Transition{Order: updated, From: o.Status, To: target, Actor: actor})
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, actor types.Actor, orderID types.ID, reason string) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}
	if reason == "" {
		reason = "Cancelled by customer"
	}

	ok, err := s.store.UpdateStatus(ctx, orderID, o.Status, StatusCancelled, &reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	cancelled, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.dispatch.OrderTransition(ctx, Transition{
		Order:         cancelled,
		From:          o.Status,
		To:            StatusCancelled,
		Actor:         actor,
		PriorAssignee: o.AssignedTo,
	})
	return cancelled, nil
}

// Rate writes a one-shot rating after delivery. A second attempt by the same
// side is rejected rather than silently ignored.
func (s *Service) Rate(ctx context.Context, actor types.Actor, orderID types.ID, rating int, comment string) (*Order, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrBadRequest
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusDelivered {
		return nil, ErrInvalidState
	}

	var side RatingSide
	switch {
	case o.CustomerID == actor.ID:
		side = RatingByCustomer
	case s.isAssignee(o, actor):
		side = RatingByDelivery
	default:
		return nil, ErrUnauthorized
	}

	ok, err := s.store.SetRating(ctx, orderID, side, Rating{Rating: rating, Comment: comment, RatedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyRated
	}

	rated, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if side == RatingByCustomer {
		s.dispatch.RatingReceived(ctx, rated, rating)
	}
	return rated, nil
}

// UpdateLocation records the assignee's advisory position for tracking.
// Before transit it describes the pickup leg, afterwards the delivery leg.
func (s *Service) UpdateLocation(ctx context.Context, actor types.Actor, orderID types.ID, p types.Point, address string) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.isAssignee(o, actor) {
		return nil, ErrUnauthorized
	}

	var pickup bool
	switch o.Status {
	case StatusAccepted, StatusPickedUp:
		pickup = true
	case StatusInTransit:
		pickup = false
	default:
		return nil, ErrInvalidState
	}
	if err := s.store.SetLocation(ctx, orderID, pickup, p); err != nil {
		return nil, err
	}
	s.dispatch.LocationUpdated(ctx, o, p, address)
	return s.store.Get(ctx, orderID)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// List applies the role-based visibility rules: customers see their own
// orders, agents see the open pool plus their assignments, admins see all.
func (s *Service) List(ctx context.Context, actor types.Actor, status Status, orderType OrderType, limit, offset int) ([]*Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	f := ListFilter{Status: status, Type: orderType, Limit: limit, Offset: offset}
	switch actor.Role {
	case types.RoleCustomer:
		id := actor.ID
		f.CustomerID = &id
	case types.RoleDelivery:
		id := actor.ID
		f.AssigneeOrPending = &id
	}
	return s.store.List(ctx, f)
}

func (s *Service) Timeline(ctx context.Context, id types.ID) ([]TimelineEntry, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Timeline(), nil
}

func (s *Service) isAssignee(o *Order, actor types.Actor) bool {
	return o.AssignedTo != nil && *o.AssignedTo == actor.ID
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
