// README: Server-sent events stream. Each client gets its personal channel
// plus, optionally, one order channel while viewing that order's chat.
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/middleware"
	"dormdrop/internal/realtime"
	"dormdrop/internal/types"
)

type EventsHandler struct {
	bus realtime.Bus
}

func NewEventsHandler(bus realtime.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	actor := middleware.Actor(c)
	topics := []string{realtime.UserTopic(actor.ID)}
	if orderID := c.Query("order"); orderID != "" {
		topics = append(topics, realtime.OrderTopic(types.ID(orderID)))
	}

	events, cancel := h.bus.Subscribe(c.Request.Context(), topics...)
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
