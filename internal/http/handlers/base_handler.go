// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/modules/chat"
	"dormdrop/internal/modules/notification"
	"dormdrop/internal/modules/order"
	"dormdrop/internal/modules/stats"
	"dormdrop/internal/modules/user"
	"dormdrop/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps domain sentinels to HTTP statuses. Anything not in
// the taxonomy is an internal error and stays opaque to the client.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest),
		errors.Is(err, chat.ErrBadRequest),
		errors.Is(err, order.ErrNoOTPIssued),
		errors.Is(err, order.ErrOTPExpired),
		errors.Is(err, order.ErrOTPMismatch):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrUnauthorized),
		errors.Is(err, order.ErrAgentUnavailable),
		errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrOwnMessage),
		errors.Is(err, stats.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, chat.ErrNotFound),
		errors.Is(err, notification.ErrNotFound),
		errors.Is(err, stats.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, order.ErrNotAcceptable),
		errors.Is(err, order.ErrAlreadyRated):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type pointView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type ratingView struct {
	Rating  int       `json:"rating"`
	Comment string    `json:"comment,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

type orderView struct {
	ID                  types.ID            `json:"id"`
	Title               string              `json:"title"`
	Type                order.OrderType     `json:"order_type"`
	From                string              `json:"pickup_from"`
	Room                string              `json:"room"`
	Description         string              `json:"description,omitempty"`
	Priority            string              `json:"priority"`
	SpecialInstructions string              `json:"special_instructions,omitempty"`
	CustomerID          types.ID            `json:"customer_id"`
	AssignedTo          *types.ID           `json:"assigned_to,omitempty"`
	Status              order.Status        `json:"status"`
	DeliveryFee         int64               `json:"delivery_fee"`
	PaymentStatus       order.PaymentStatus `json:"payment_status"`
	DeliveryOTP         *string             `json:"delivery_otp,omitempty"`
	PickupLocation      *pointView          `json:"pickup_location,omitempty"`
	DeliveryLocation    *pointView          `json:"delivery_location,omitempty"`
	CustomerRating      *ratingView         `json:"customer_rating,omitempty"`
	DeliveryRating      *ratingView         `json:"delivery_rating,omitempty"`
	CancelReason        *string             `json:"cancel_reason,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	AcceptedAt          *time.Time          `json:"accepted_at,omitempty"`
	PickedUpAt          *time.Time          `json:"picked_up_at,omitempty"`
	InTransitAt         *time.Time          `json:"in_transit_at,omitempty"`
	DeliveredAt         *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
}

// toOrderView serializes an order for one viewer. The OTP is the customer's
// handoff secret: only the customer (or an admin) ever sees it.
func toOrderView(o *order.Order, viewer types.Actor) orderView {
	v := orderView{
		ID:                  o.ID,
		Title:               o.Title,
		Type:                o.Type,
		From:                o.From,
		Room:                o.Room,
		Description:         o.Description,
		Priority:            o.Priority,
		SpecialInstructions: o.SpecialInstructions,
		CustomerID:          o.CustomerID,
		AssignedTo:          o.AssignedTo,
		Status:              o.Status,
		DeliveryFee:         o.DeliveryFee,
		PaymentStatus:       o.PaymentStatus,
		CancelReason:        o.CancelReason,
		CreatedAt:           o.CreatedAt,
		AcceptedAt:          o.AcceptedAt,
		PickedUpAt:          o.PickedUpAt,
		InTransitAt:         o.InTransitAt,
		DeliveredAt:         o.DeliveredAt,
		CancelledAt:         o.CancelledAt,
	}
	if o.DeliveryOTP != nil && (viewer.ID == o.CustomerID || viewer.IsAdmin()) {
		v.DeliveryOTP = o.DeliveryOTP
	}
	if o.PickupLocation != nil {
		v.PickupLocation = &pointView{Lat: o.PickupLocation.Lat, Lng: o.PickupLocation.Lng}
	}
	if o.DeliveryLocation != nil {
		v.DeliveryLocation = &pointView{Lat: o.DeliveryLocation.Lat, Lng: o.DeliveryLocation.Lng}
	}
	if o.CustomerRating != nil {
		v.CustomerRating = &ratingView{Rating: o.CustomerRating.Rating, Comment: o.CustomerRating.Comment, RatedAt: o.CustomerRating.RatedAt}
	}
	if o.DeliveryRating != nil {
		v.DeliveryRating = &ratingView{Rating: o.DeliveryRating.Rating, Comment: o.DeliveryRating.Comment, RatedAt: o.DeliveryRating.RatedAt}
	}
	return v
}

func toOrderViews(orders []*order.Order, viewer types.Actor) []orderView {
	views := make([]orderView, len(orders))
	for i, o := range orders {
		views[i] = toOrderView(o, viewer)
	}
	return views
}
