package http

import (
	"errors"
	"net/http"

	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
)

// AlertHandler exposes the seller alert channel (a Telegram chat)
type AlertHandler struct {
	alerts *usecases.AlertService
}

func NewAlertHandler(alerts *usecases.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// RegisterRoutes registers alert routes
func (h *AlertHandler) RegisterRoutes(api *gin.RouterGroup) {
	alerts := api.Group("/alerts")
	{
		alerts.GET("/status", h.GetStatus)
		alerts.POST("/test", h.SendTest)
	}
}

// GetStatus reports whether alerts are configured and through which bot
func (h *AlertHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":  h.alerts.Enabled(),
		"bot_name": h.alerts.BotName(),
	})
}

// SendTest pushes a test alert so the seller can check the chat id
func (h *AlertHandler) SendTest(c *gin.Context) {
	err := h.alerts.SendTest("✅ BuzzChat alerts are working")
	switch {
	case errors.Is(err, usecases.ErrAlertsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to deliver test alert"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "sent"})
	}
}
