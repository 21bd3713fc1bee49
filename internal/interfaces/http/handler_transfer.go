package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

func (h *Handler) registerTransferRoutes(api *gin.RouterGroup) {
	api.GET("/export", h.ExportSettings)
	api.POST("/import", h.ImportSettings)
	api.GET("/commands/export", h.ExportCommands)
	api.POST("/commands/import", h.ImportCommands)
	api.GET("/export/analytics.csv", h.ExportAnalytics)
	api.GET("/export/buyers.csv", h.ExportBuyers)
	api.GET("/export/inventory.csv", h.ExportInventory)
	api.GET("/referral/qr", h.GetReferralQR)
}

// readUpload reads at most one byte past the import cap so oversized files
// are rejected by the importer rather than silently cut.
func readUpload(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, usecases.MaxImportBytes+1))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request too large"})
		return nil, false
	}
	return raw, true
}

func attachment(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, body)
}

func datedName(prefix, ext string) string {
	return fmt.Sprintf("%s-%s.%s", prefix, time.Now().UTC().Format("2006-01-02"), ext)
}

func (h *Handler) ExportSettings(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	body, err := ws.Transfer.ExportSettings()
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	attachment(c, datedName("buzzchat-settings", "json"), "application/json", body)
}

func (h *Handler) ImportSettings(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	raw, ok := readUpload(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	settings, err := ws.Transfer.ImportSettings(c.Request.Context(), notices, raw)
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"settings": settings}, notices)
}

func (h *Handler) ExportCommands(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	body, err := ws.Transfer.ExportCommands()
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	attachment(c, datedName("buzzchat-commands", "json"), "application/json", body)
}

func (h *Handler) ImportCommands(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	raw, ok := readUpload(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	n, err := ws.Transfer.ImportCommands(c.Request.Context(), notices, raw)
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"imported": n, "commands": ws.Commands.List()}, notices)
}

func (h *Handler) ExportAnalytics(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
		return
	}
	var buf bytes.Buffer
	if err := ws.Transfer.ExportAnalyticsCSV(c.Request.Context(), &buf, days); err != nil {
		h.respondError(c, err, nil)
		return
	}
	attachment(c, datedName("buzzchat-analytics", "csv"), "text/csv", buf.Bytes())
}

func (h *Handler) ExportBuyers(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := ws.Transfer.ExportBuyersCSV(c.Request.Context(), &buf); err != nil {
		h.respondError(c, err, nil)
		return
	}
	attachment(c, datedName("buzzchat-buyers", "csv"), "text/csv", buf.Bytes())
}

func (h *Handler) ExportInventory(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := ws.Transfer.ExportInventoryCSV(&buf); err != nil {
		h.respondError(c, err, nil)
		return
	}
	attachment(c, datedName("buzzchat-inventory", "csv"), "text/csv", buf.Bytes())
}

// GetReferralQR renders the seller's referral link as a PNG
func (h *Handler) GetReferralQR(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if h.referralBaseURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Referrals not configured"})
		return
	}
	link := h.referralBaseURL + "?ref=" + url.QueryEscape(ws.Namespace)

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Header("X-Referral-Link", link)
	c.Data(http.StatusOK, "image/png", png)
}
