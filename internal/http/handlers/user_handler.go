// README: User handlers: profile and agent availability toggle.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/middleware"
	"dormdrop/internal/modules/user"
	"dormdrop/internal/types"
)

type UserHandler struct {
	users *user.Store
}

func NewUserHandler(store *user.Store) *UserHandler {
	return &UserHandler{users: store}
}

type userView struct {
	ID        types.ID   `json:"id"`
	Name      string     `json:"name"`
	Role      types.Role `json:"role"`
	Room      string     `json:"room"`
	Hostel    string     `json:"hostel"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`

	IsAvailable         bool    `json:"is_available,omitempty"`
	TotalDeliveries     int64   `json:"total_deliveries,omitempty"`
	CompletedDeliveries int64   `json:"completed_deliveries,omitempty"`
	TotalEarnings       int64   `json:"total_earnings,omitempty"`
	AverageRating       float64 `json:"average_rating,omitempty"`
	RatingCount         int64   `json:"rating_count,omitempty"`
}

func toUserView(u *user.User) userView {
	v := userView{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		Room:      u.Room,
		Hostel:    u.Hostel,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.Role == types.RoleDelivery {
		v.IsAvailable = u.Stats.IsAvailable
		v.TotalDeliveries = u.Stats.TotalDeliveries
		v.CompletedDeliveries = u.Stats.CompletedDeliveries
		v.TotalEarnings = u.Stats.TotalEarnings
		v.AverageRating = u.Stats.AverageRating
		v.RatingCount = u.Stats.RatingCount
	}
	return v
}

func (h *UserHandler) Me(c *gin.Context) {
	actor := middleware.Actor(c)
	u, err := h.users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toUserView(u))
}

type availabilityReq struct {
	Available bool `json:"available"`
}

func (h *UserHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	if actor.Role != types.RoleDelivery {
		writeError(c, http.StatusForbidden, "delivery agents only")
		return
	}
	if err := h.users.SetAvailability(c.Request.Context(), actor.ID, req.Available); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"is_available": req.Available})
}
