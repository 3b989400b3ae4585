// README: Stats handlers: leaderboard, earnings, admin system report.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dormdrop/internal/http/middleware"
	"dormdrop/internal/modules/stats"
	"dormdrop/internal/types"
)

type StatsHandler struct {
	stats *stats.Service
}

func NewStatsHandler(svc *stats.Service) *StatsHandler {
	return &StatsHandler{stats: svc}
}

func (h *StatsHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.stats.Leaderboard(c.Request.Context(), c.DefaultQuery("timeframe", stats.TimeframeAll), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"leaderboard": entries})
}

func (h *StatsHandler) Earnings(c *gin.Context) {
	actor := middleware.Actor(c)
	report, err := h.stats.Earnings(c.Request.Context(), actor, types.ID(c.Param("id")),
		c.DefaultQuery("timeframe", stats.TimeframeAll))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (h *StatsHandler) System(c *gin.Context) {
	actor := middleware.Actor(c)
	if !actor.IsAdmin() {
		writeError(c, http.StatusForbidden, "admin only")
		return
	}
	report, err := h.stats.SystemStats(c.Request.Context(), c.DefaultQuery("timeframe", stats.TimeframeAll))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}
