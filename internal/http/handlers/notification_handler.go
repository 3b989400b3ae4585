// README: Notification handlers: list, read state, unread count.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/middleware"
	"dormdrop/internal/modules/notification"
	"dormdrop/internal/types"
)

type NotificationHandler struct {
	notifications *notification.Service
}

func NewNotificationHandler(svc *notification.Service) *NotificationHandler {
	return &NotificationHandler{notifications: svc}
}

type notificationView struct {
	ID        types.ID          `json:"id"`
	OrderID   *types.ID         `json:"order_id,omitempty"`
	Type      notification.Type `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	IsRead    bool              `json:"is_read"`
	CreatedAt time.Time         `json:"created_at"`
}

func (h *NotificationHandler) List(c *gin.Context) {
	actor := middleware.Actor(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	ns, err := h.notifications.List(c.Request.Context(), actor, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	views := make([]notificationView, len(ns))
	for i, n := range ns {
		views[i] = notificationView{
			ID:        n.ID,
			OrderID:   n.OrderID,
			Type:      n.Type,
			Title:     n.Title,
			Body:      n.Body,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"notifications": views})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := h.notifications.MarkRead(c.Request.Context(), actor, types.ID(c.Param("id"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := h.notifications.MarkAllRead(c.Request.Context(), actor); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "read"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor := middleware.Actor(c)
	n, err := h.notifications.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"unread_count": n})
}
