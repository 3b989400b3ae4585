// README: Order handlers: create, list, claim, advance, cancel, rate,
// location, timeline.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/middleware"
	"dormdrop/internal/modules/order"
	"dormdrop/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	Title               string `json:"title"`
	OrderType           string `json:"order_type"`
	PickupFrom          string `json:"pickup_from"`
	Room                string `json:"room"`
	Description         string `json:"description"`
	Priority            string `json:"priority"`
	SpecialInstructions string `json:"special_instructions"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	o, err := h.order.Create(c.Request.Context(), actor, order.CreateCommand{
		Title:               req.Title,
		Type:                order.OrderType(req.OrderType),
		From:                req.PickupFrom,
		Room:                req.Room,
		Description:         req.Description,
		Priority:            req.Priority,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toOrderView(o, actor))
}

func (h *OrderHandler) Get(c *gin.Context) {
	actor := middleware.Actor(c)
	o, err := h.order.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderView(o, actor))
}

func (h *OrderHandler) List(c *gin.Context) {
	actor := middleware.Actor(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	orders, err := h.order.List(c.Request.Context(), actor,
		order.Status(c.Query("status")), order.OrderType(c.Query("type")), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": toOrderViews(orders, actor)})
}

func (h *OrderHandler) Accept(c *gin.Context) {
	actor := middleware.Actor(c)
	o, err := h.order.Accept(c.Request.Context(), actor, types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderView(o, actor))
}

type advanceReq struct {
	Status string `json:"status"`
	OTP    string `json:"otp"`
}

func (h *OrderHandler) Advance(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	o, err := h.order.Advance(c.Request.Context(), actor, types.ID(c.Param("id")), order.Status(req.Status), req.OTP)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderView(o, actor))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelReq
	// An empty body is a plain customer cancel.
	_ = c.ShouldBindJSON(&req)
	actor := middleware.Actor(c)
	o, err := h.order.Cancel(c.Request.Context(), actor, types.ID(c.Param("id")), req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderView(o, actor))
}

type rateReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *OrderHandler) Rate(c *gin.Context) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	o, err := h.order.Rate(c.Request.Context(), actor, types.ID(c.Param("id")), req.Rating, req.Comment)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderView(o, actor))
}

type locationReq struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

func (h *OrderHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	o, err := h.order.UpdateLocation(c.Request.Context(), actor, types.ID(c.Param("id")),
		types.Point{Lat: req.Lat, Lng: req.Lng}, req.Address)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderView(o, actor))
}

func (h *OrderHandler) Timeline(c *gin.Context) {
	timeline, err := h.order.Timeline(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"timeline": timeline})
}
