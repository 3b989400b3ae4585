// README: Chat handlers: send, conversation, read state, typing, unread count.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/middleware"
	"dormdrop/internal/modules/chat"
	"dormdrop/internal/types"
)

type ChatHandler struct {
	chat *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{chat: svc}
}

type messageView struct {
	ID         types.ID         `json:"id"`
	OrderID    types.ID         `json:"order_id"`
	SenderID   types.ID         `json:"sender_id"`
	Content    string           `json:"content"`
	Type       chat.Type        `json:"msg_type"`
	SystemType *chat.SystemType `json:"system_type,omitempty"`
	IsRead     bool             `json:"is_read"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func toMessageView(m *chat.Message) messageView {
	return messageView{
		ID:         m.ID,
		OrderID:    m.OrderID,
		SenderID:   m.SenderID,
		Content:    m.Content,
		Type:       m.Type,
		SystemType: m.SystemType,
		IsRead:     m.IsRead,
		ReadAt:     m.ReadAt,
		CreatedAt:  m.CreatedAt,
	}
}

type sendMessageReq struct {
	Content string `json:"content"`
	MsgType string `json:"msg_type"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	m, err := h.chat.Send(c.Request.Context(), actor, types.ID(c.Param("id")), req.Content, chat.Type(req.MsgType))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toMessageView(m))
}

func (h *ChatHandler) Conversation(c *gin.Context) {
	actor := middleware.Actor(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, _ := strconv.Atoi(c.Query("page"))
	msgs, err := h.chat.Conversation(c.Request.Context(), actor, types.ID(c.Param("id")), limit, page)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	views := make([]messageView, len(msgs))
	for i, m := range msgs {
		views[i] = toMessageView(m)
	}
	writeJSON(c, http.StatusOK, gin.H{"messages": views})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := h.chat.MarkRead(c.Request.Context(), actor, types.ID(c.Param("messageId"))); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "read"})
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	actor := middleware.Actor(c)
	n, err := h.chat.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"unread_count": n})
}

type typingReq struct {
	Typing bool `json:"typing"`
}

func (h *ChatHandler) Typing(c *gin.Context) {
	var req typingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	actor := middleware.Actor(c)
	if err := h.chat.Typing(c.Request.Context(), actor, types.ID(c.Param("id")), req.Typing); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
