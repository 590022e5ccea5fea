package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatsSource is the narrow surface the admin stats endpoint needs
// from the rest of the object graph, kept as an interface so this
// package never imports internal/matchmaking, internal/gameserver, or
// internal/session directly.
type StatsSource interface {
	QueueDepth() int
	ActiveMatchCount() int
	ServerCounts() (total, available int)
	SessionsOnline() int
}

type StatsHandler struct {
	source StatsSource
}

func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

func (h *StatsHandler) Stats(c *gin.Context) {
	total, available := h.source.ServerCounts()
	c.JSON(http.StatusOK, gin.H{
		"queue_depth":       h.source.QueueDepth(),
		"active_matches":    h.source.ActiveMatchCount(),
		"servers_total":     total,
		"servers_available": available,
		"sessions_online":   h.source.SessionsOnline(),
	})
}
