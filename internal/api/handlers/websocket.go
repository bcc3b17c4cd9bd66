package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/hardikbhesaniya/vcallserver/internal/service"
	"github.com/hardikbhesaniya/vcallserver/internal/signaling"
)

// WebSocketHandler upgrades signaling connections
type WebSocketHandler struct {
	hub     *signaling.Hub
	matcher *service.MatchService
}

// NewWebSocketHandler creates a WebSocketHandler
func NewWebSocketHandler(hub *signaling.Hub, matcher *service.MatchService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		matcher: matcher,
	}
}

// HandleWebSocket is the signaling endpoint
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	signaling.ServeWs(h.hub, h.matcher, c.Writer, c.Request)
}
