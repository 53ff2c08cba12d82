package handler

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_promo/internal/sse"
	"github.com/GTDGit/gtd_promo/internal/utils"
)

// SSEHandler streams promotion events to admin dashboards.
type SSEHandler struct {
	hub          *sse.Hub
	jwtSecret    string
	pingInterval time.Duration
}

// NewSSEHandler creates a new SSEHandler. With an empty jwtSecret the stream is open.
func NewSSEHandler(hub *sse.Hub, jwtSecret string) *SSEHandler {
	return &SSEHandler{hub: hub, jwtSecret: jwtSecret, pingInterval: 30 * time.Second}
}

// Stream handles GET /v1/promos/events?token=<jwt>
// EventSource API cannot set custom headers, so JWT is passed via query param.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := 0
	if h.jwtSecret != "" {
		token := c.Query("token")
		if token == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing token query parameter")
			return
		}
		claims, err := utils.ValidateJWT(token, h.jwtSecret)
		if err != nil {
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		userID = claims.UserID
	}

	clientID := fmt.Sprintf("admin-%d-%d", userID, time.Now().UnixNano())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID)
	defer h.hub.Unregister(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"message":   "SSE connection established",
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int("user_id", userID).Msg("Promotion event stream started")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent("promotion", string(data))
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
