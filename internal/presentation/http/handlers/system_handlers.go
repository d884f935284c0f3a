package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/messaging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
)

const defaultPerfEntries = 50

// SystemHandlers serves health, performance and the live feed.
type SystemHandlers struct {
	hub         *messaging.Hub
	upgrader    websocket.Upgrader
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSystemHandlers creates system handlers. The websocket upgrade accepts
// same-host origins only.
func NewSystemHandlers(hub *messaging.Hub, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SystemHandlers {
	return &SystemHandlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetHealth handles GET /healthz
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetPerf handles GET /admin/api/perf?recent=N
func (h *SystemHandlers) GetPerf(c *gin.Context) {
	recent := defaultPerfEntries
	if n, err := strconv.Atoi(c.Query("recent")); err == nil && n >= 0 {
		recent = n
	}
	c.JSON(http.StatusOK, h.perfTracker.Report(recent))
}

// GetLogLevels handles GET /admin/api/logging
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

// PostLogLevel handles POST /admin/api/logging. Form fields: channel, level.
func (h *SystemHandlers) PostLogLevel(c *gin.Context) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.PostForm("level")))); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown level"})
		return
	}
	channel := logging.Channel(strings.TrimSpace(c.PostForm("channel")))
	if err := h.logger.SetChannelLevel(channel, level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "levels": h.logger.GetChannelLevels()})
}

// GetFeed handles GET /admin/ws - the live record feed
func (h *SystemHandlers) GetFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.HTTP().Warn("Websocket upgrade failed", "error", err.Error())
		return
	}
	h.logger.HTTP().Info("Feed client connected", "clientIp", c.ClientIP(), "clients", h.hub.Count()+1)
	h.hub.Serve(conn)
	h.logger.HTTP().Info("Feed client disconnected", "clientIp", c.ClientIP())
}
