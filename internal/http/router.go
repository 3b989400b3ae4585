// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/handlers"
	"dormdrop/internal/http/middleware"
	"dormdrop/internal/modules/chat"
	"dormdrop/internal/modules/notification"
	"dormdrop/internal/modules/order"
	"dormdrop/internal/modules/stats"
	"dormdrop/internal/modules/user"
	"dormdrop/internal/realtime"
)

type RouterDeps struct {
	Order         *order.Service
	Chat          *chat.Service
	Notifications *notification.Service
	Stats         *stats.Service
	Users         *user.Store
	Bus           realtime.Bus
	JWTSecret     string
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Leaderboard is the campus notice board; no token needed to read it.
	statsHandler := handlers.NewStatsHandler(deps.Stats)
	r.GET("/api/stats/leaderboard", statsHandler.Leaderboard)

	api := r.Group("/api", middleware.Auth(deps.JWTSecret))

	orderHandler := handlers.NewOrderHandler(deps.Order)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/accept", orderHandler.Accept)
	api.PATCH("/orders/:id/status", orderHandler.Advance)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/orders/:id/rate", orderHandler.Rate)
	api.PUT("/orders/:id/location", orderHandler.UpdateLocation)
	api.GET("/orders/:id/timeline", orderHandler.Timeline)

	chatHandler := handlers.NewChatHandler(deps.Chat)
	api.POST("/orders/:id/messages", chatHandler.Send)
	api.GET("/orders/:id/messages", chatHandler.Conversation)
	api.POST("/orders/:id/typing", chatHandler.Typing)
	api.PATCH("/messages/:messageId/read", chatHandler.MarkRead)
	api.GET("/messages/unread-count", chatHandler.UnreadCount)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.PATCH("/notifications/read-all", notificationHandler.MarkAllRead)
	api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)

	api.GET("/stats/earnings/:id", statsHandler.Earnings)
	api.GET("/stats/system", statsHandler.System)

	userHandler := handlers.NewUserHandler(deps.Users)
	api.GET("/users/me", userHandler.Me)
	api.PUT("/users/availability", userHandler.SetAvailability)

	eventsHandler := handlers.NewEventsHandler(deps.Bus)
	api.GET("/events", eventsHandler.Stream)

	return r
}
