package http

import (
	"net/http"
	"strconv"
	"strings"

	"buzzchat/internal/entities"
	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
)

func (h *Handler) registerFeatureRoutes(api *gin.RouterGroup) {
	api.GET("/welcome", h.GetWelcome)
	api.PUT("/welcome", h.PutWelcome)

	api.GET("/timers", h.ListTimers)
	api.PUT("/timers/enabled", h.SetTimersEnabled)
	api.POST("/timers", h.AddTimer)
	api.PATCH("/timers/:index", h.UpdateTimer)
	api.DELETE("/timers/:index", h.DeleteTimer)

	api.GET("/faq", h.ListFAQ)
	api.PUT("/faq/enabled", h.SetFAQEnabled)
	api.POST("/faq", h.AddFAQ)
	api.POST("/faq/preview", h.PreviewFAQ)
	api.PATCH("/faq/:index", h.UpdateFAQ)
	api.DELETE("/faq/:index", h.DeleteFAQ)

	api.GET("/commands", h.ListCommands)
	api.PUT("/commands/enabled", h.SetCommandsEnabled)
	api.POST("/commands", h.AddCommand)
	api.PATCH("/commands/:index", h.UpdateCommand)
	api.DELETE("/commands/:index", h.DeleteCommand)

	api.GET("/quick-replies", h.ListQuickReplies)
	api.PUT("/quick-replies/enabled", h.SetQuickRepliesEnabled)
	api.POST("/quick-replies", h.AddQuickReply)
	api.PATCH("/quick-replies/:index", h.UpdateQuickReply)
	api.DELETE("/quick-replies/:index", h.DeleteQuickReply)

	api.GET("/templates", h.ListTemplates)
	api.POST("/templates", h.AddTemplate)
	api.PATCH("/templates/:index", h.UpdateTemplate)
	api.DELETE("/templates/:index", h.DeleteTemplate)
	api.POST("/templates/:index/send", h.SendTemplate)

	api.GET("/moderation", h.GetModeration)
	api.PUT("/moderation", h.PutModeration)

	api.GET("/giveaway", h.GetGiveaway)
	api.PUT("/giveaway", h.PutGiveaway)
	api.GET("/giveaway/entries", h.GetGiveawayEntries)
	api.POST("/giveaway/reset", h.ResetGiveaway)

	api.GET("/translation", h.GetTranslation)
	api.PUT("/translation", h.PutTranslation)

	api.GET("/inventory", h.ListInventory)
	api.PUT("/inventory/enabled", h.SetInventoryEnabled)
	api.POST("/inventory", h.AddInventoryItem)
	api.POST("/inventory/:sku/adjust", h.AdjustInventory)
	api.POST("/inventory/:sku/waitlist", h.JoinWaitlist)
	api.DELETE("/inventory/:sku", h.DeleteInventoryItem)
	api.GET("/inventory/announcer", h.GetAnnouncer)
	api.PUT("/inventory/announcer", h.PutAnnouncer)
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

func bindEnabled(c *gin.Context) (bool, bool) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return false, false
	}
	return req.Enabled, true
}

func indexParam(c *gin.Context) (int, bool) {
	i, ok := ParseIndex(c.Param("index"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
	}
	return i, ok
}

func confirmation(c *gin.Context) usecases.Confirmation {
	return usecases.Confirmation{Confirmed: Confirmed(c.Query("confirm"))}
}

// intField turns a JSON number into the raw text the clamping parsers expect
func intField(v *float64) string {
	return strconv.Itoa(int(*v))
}

// ========================================
// Welcome
// ========================================

func (h *Handler) GetWelcome(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Welcome.Get())
}

func (h *Handler) PutWelcome(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool    `json:"enabled"`
		Message *string  `json:"message"`
		Delay   *float64 `json:"delay"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()
	notices := &usecases.NoticeCollector{}
	if req.Message != nil {
		if err := ws.Welcome.SetMessage(notices, SanitizeString(*req.Message)); err != nil {
			h.respondError(c, err, notices)
			return
		}
	}
	if req.Delay != nil {
		if _, err := ws.Welcome.SetDelay(ctx, intField(req.Delay)); err != nil {
			h.respondError(c, err, notices)
			return
		}
	}
	if req.Enabled != nil {
		if err := ws.Welcome.SetEnabled(ctx, *req.Enabled); err != nil {
			h.respondError(c, err, notices)
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"welcome": ws.Welcome.Get()}, notices)
}

// ========================================
// Timers
// ========================================

func (h *Handler) ListTimers(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Timers.List())
}

func (h *Handler) SetTimersEnabled(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	enabled, ok := bindEnabled(c)
	if !ok {
		return
	}
	if err := ws.Timers.SetEnabled(c.Request.Context(), enabled); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) AddTimer(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.Timers.Add(c.Request.Context(), notices); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusCreated, gin.H{"timers": ws.Timers.List()}, notices)
}

func (h *Handler) UpdateTimer(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		Text     *string  `json:"text"`
		Interval *float64 `json:"interval"`
		Enabled  *bool    `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()
	notices := &usecases.NoticeCollector{}
	var err error
	if req.Text != nil {
		err = ws.Timers.SetText(notices, index, SanitizeString(*req.Text))
	}
	if err == nil && req.Interval != nil {
		_, err = ws.Timers.SetInterval(ctx, index, intField(req.Interval))
	}
	if err == nil && req.Enabled != nil {
		err = ws.Timers.Toggle(ctx, index, *req.Enabled)
	}
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"timers": ws.Timers.List()}, notices)
}

func (h *Handler) DeleteTimer(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := ws.Timers.Delete(c.Request.Context(), index, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timers": ws.Timers.List()})
}

// ========================================
// FAQ
// ========================================

func (h *Handler) ListFAQ(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.FAQ.List())
}

func (h *Handler) SetFAQEnabled(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	enabled, ok := bindEnabled(c)
	if !ok {
		return
	}
	if err := ws.FAQ.SetEnabled(c.Request.Context(), enabled); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) AddFAQ(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.FAQ.AddRule(c.Request.Context(), notices); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusCreated, gin.H{"faq": ws.FAQ.List()}, notices)
}

func (h *Handler) PreviewFAQ(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, ws.FAQ.Preview(SanitizeString(req.Message)))
}

func (h *Handler) UpdateFAQ(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		Triggers      *string `json:"triggers"` // comma separated, as typed
		Reply         *string `json:"reply"`
		CaseSensitive *bool   `json:"caseSensitive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	var err error
	if req.Triggers != nil {
		_, err = ws.FAQ.SetTriggers(notices, index, SanitizeString(*req.Triggers))
	}
	if err == nil && req.Reply != nil {
		err = ws.FAQ.SetReply(notices, index, SanitizeString(*req.Reply))
	}
	if err == nil && req.CaseSensitive != nil {
		err = ws.FAQ.SetCaseSensitive(c.Request.Context(), index, *req.CaseSensitive)
	}
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"faq": ws.FAQ.List()}, notices)
}

func (h *Handler) DeleteFAQ(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := ws.FAQ.Delete(c.Request.Context(), index, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"faq": ws.FAQ.List()})
}

// ========================================
// Commands
// ========================================

func (h *Handler) ListCommands(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Commands.List())
}

func (h *Handler) SetCommandsEnabled(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	enabled, ok := bindEnabled(c)
	if !ok {
		return
	}
	if err := ws.Commands.SetEnabled(c.Request.Context(), enabled); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) AddCommand(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.Commands.Add(c.Request.Context(), notices); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusCreated, gin.H{"commands": ws.Commands.List()}, notices)
}

func (h *Handler) UpdateCommand(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		Trigger  *string  `json:"trigger"`
		Response *string  `json:"response"`
		Cooldown *float64 `json:"cooldown"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	var err error
	if req.Trigger != nil {
		_, err = ws.Commands.SetTrigger(index, *req.Trigger)
	}
	if err == nil && req.Response != nil {
		err = ws.Commands.SetResponse(notices, index, SanitizeString(*req.Response))
	}
	if err == nil && req.Cooldown != nil {
		_, err = ws.Commands.SetCooldown(c.Request.Context(), index, intField(req.Cooldown))
	}
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"commands": ws.Commands.List()}, notices)
}

func (h *Handler) DeleteCommand(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := ws.Commands.Delete(c.Request.Context(), index, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": ws.Commands.List()})
}

// ========================================
// Quick replies
// ========================================

type quickReplyRequest struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

func (h *Handler) ListQuickReplies(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.QuickReplies.List())
}

func (h *Handler) SetQuickRepliesEnabled(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	enabled, ok := bindEnabled(c)
	if !ok {
		return
	}
	if err := ws.QuickReplies.SetEnabled(c.Request.Context(), enabled); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) AddQuickReply(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req quickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.QuickReplies.Add(c.Request.Context(), notices, SanitizeString(req.Label), SanitizeString(req.Text)); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusCreated, gin.H{"quickReplies": ws.QuickReplies.List()}, notices)
}

func (h *Handler) UpdateQuickReply(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req quickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.QuickReplies.Update(notices, index, SanitizeString(req.Label), SanitizeString(req.Text)); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"quickReplies": ws.QuickReplies.List()}, notices)
}

func (h *Handler) DeleteQuickReply(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := ws.QuickReplies.Delete(c.Request.Context(), index, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quickReplies": ws.QuickReplies.List()})
}

// ========================================
// Templates
// ========================================

type templateRequest struct {
	Name *string `json:"name"`
	Text *string `json:"text"`
}

func (h *Handler) ListTemplates(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Templates.List())
}

func (h *Handler) AddTemplate(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	var name, text string
	if req.Name != nil {
		name = SanitizeString(*req.Name)
	}
	if req.Text != nil {
		text = SanitizeString(*req.Text)
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.Templates.Add(c.Request.Context(), notices, name, text); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusCreated, gin.H{"templates": ws.Templates.List()}, notices)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	var err error
	if req.Name != nil {
		err = ws.Templates.SetName(notices, index, SanitizeString(*req.Name))
	}
	if err == nil && req.Text != nil {
		err = ws.Templates.SetText(notices, index, SanitizeString(*req.Text))
	}
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"templates": ws.Templates.List()}, notices)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	if err := ws.Templates.Delete(c.Request.Context(), index, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": ws.Templates.List()})
}

func (h *Handler) SendTemplate(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	index, ok := indexParam(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.Templates.Send(c.Request.Context(), notices, index); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "sent"}, notices)
}

// ========================================
// Moderation, giveaway, translation, preferences
// ========================================

func (h *Handler) GetModeration(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Moderation.Get())
}

func (h *Handler) PutModeration(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		usecases.ModerationToggles
		BlockedWords  *string  `json:"blockedWords"` // comma separated
		CapsThreshold *float64 `json:"capsThreshold"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()
	notices := &usecases.NoticeCollector{}
	var err error
	if req.BlockedWords != nil {
		_, err = ws.Moderation.SetBlockedWords(notices, SanitizeString(*req.BlockedWords))
	}
	if err == nil && req.CapsThreshold != nil {
		_, err = ws.Moderation.SetCapsThreshold(ctx, intField(req.CapsThreshold))
	}
	if err == nil {
		err = ws.Moderation.SetToggles(ctx, req.ModerationToggles)
	}
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"moderation": ws.Moderation.Get()}, notices)
}

func (h *Handler) GetGiveaway(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Giveaway.Get())
}

func (h *Handler) PutGiveaway(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Enabled    *bool   `json:"enabled"`
		Keyword    *string `json:"keyword"`
		UniqueOnly *bool   `json:"uniqueOnly"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()
	var err error
	if req.Keyword != nil {
		_, err = ws.Giveaway.SetKeyword(*req.Keyword)
	}
	if err == nil && req.UniqueOnly != nil {
		err = ws.Giveaway.SetUniqueOnly(ctx, *req.UniqueOnly)
	}
	if err == nil && req.Enabled != nil {
		err = ws.Giveaway.SetEnabled(ctx, *req.Enabled)
	}
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaway": ws.Giveaway.Get()})
}

func (h *Handler) GetGiveawayEntries(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	entries, err := ws.Giveaway.Entries(c.Request.Context())
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *Handler) ResetGiveaway(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.Giveaway.Reset(c.Request.Context(), notices, confirmation(c)); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "reset"}, notices)
}

func (h *Handler) GetTranslation(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"translation": ws.Translation.Get(),
		"languages":   usecases.TranslationLanguages,
	})
}

func (h *Handler) PutTranslation(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Enabled        bool    `json:"enabled"`
		AutoDetect     bool    `json:"autoDetect"`
		TargetLanguage *string `json:"targetLanguage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()
	notices := &usecases.NoticeCollector{}
	var err error
	if req.TargetLanguage != nil {
		_, err = ws.Translation.SetTargetLanguage(ctx, notices, *req.TargetLanguage)
	}
	if err == nil {
		err = ws.Translation.SetEnabled(ctx, req.Enabled, req.AutoDetect)
	}
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"translation": ws.Translation.Get()}, notices)
}

func (h *Handler) GetPreferences(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.General.Preferences())
}

func (h *Handler) PutPreferences(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req entities.Preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.General.SetPreferences(c.Request.Context(), notices, req); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"preferences": ws.General.Preferences()}, notices)
}

// ========================================
// Inventory
// ========================================

func (h *Handler) ListInventory(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"inventory": ws.Inventory.List(),
		"soldOut":   ws.Inventory.SoldOut(),
	})
}

func (h *Handler) SetInventoryEnabled(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	enabled, ok := bindEnabled(c)
	if !ok {
		return
	}
	if err := ws.Inventory.SetEnabled(c.Request.Context(), enabled); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) AddInventoryItem(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		SKU      string  `json:"sku"`
		Name     string  `json:"name"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(strings.TrimSpace(req.SKU)) > MaxSKULength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	item, err := ws.Inventory.Add(c.Request.Context(), notices, req.SKU, SanitizeString(req.Name), req.Quantity, req.Price)
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusCreated, gin.H{"item": item}, notices)
}

func (h *Handler) AdjustInventory(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	item, err := ws.Inventory.AdjustQuantity(c.Request.Context(), notices, c.Param("sku"), req.Delta)
	if err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"item": item, "soldOut": item.SoldOut()}, notices)
}

func (h *Handler) JoinWaitlist(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := ws.Inventory.JoinWaitlist(c.Request.Context(), c.Param("sku"), SanitizeString(req.Username)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "waiting"})
}

func (h *Handler) DeleteInventoryItem(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.Inventory.Delete(c.Request.Context(), c.Param("sku"), confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": ws.Inventory.List()})
}

func (h *Handler) GetAnnouncer(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Store.Snapshot().SoldOutAnnouncer)
}

func (h *Handler) PutAnnouncer(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req entities.SoldOutAnnouncerSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	notices := &usecases.NoticeCollector{}
	if err := ws.Inventory.SetAnnouncer(c.Request.Context(), notices, req); err != nil {
		h.respondError(c, err, notices)
		return
	}
	respond(c, http.StatusOK, gin.H{"announcer": ws.Store.Snapshot().SoldOutAnnouncer}, notices)
}
