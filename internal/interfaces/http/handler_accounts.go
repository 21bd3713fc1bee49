package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) registerAccountRoutes(api *gin.RouterGroup) {
	accounts := api.Group("/accounts")
	{
		accounts.GET("", h.ListAccounts)
		accounts.POST("", h.CreateAccount)
		accounts.PUT("/:id/activate", h.ActivateAccount)
		accounts.PATCH("/:id", h.RenameAccount)
		accounts.DELETE("/:id", h.DeleteAccount)
	}

	keys := api.Group("/api-keys")
	{
		keys.GET("", h.ListApiKeys)
		keys.POST("", h.GenerateApiKey)
		keys.DELETE("/:id", h.RevokeApiKey)
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

func accountIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !ValidAccountID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
		return "", false
	}
	return id, true
}

// ListAccounts is open to every tier so the popup can show the account
// switcher greyed out.
func (h *Handler) ListAccounts(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	list, err := ws.Accounts.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": list})
}

func (h *Handler) CreateAccount(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	acc, err := ws.Accounts.Create(c.Request.Context(), SanitizeString(req.Name))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *Handler) ActivateAccount(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	id, ok := accountIDParam(c)
	if !ok {
		return
	}
	if err := ws.Accounts.SetActive(c.Request.Context(), id); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": id, "settings": ws.Store.Snapshot()})
}

func (h *Handler) RenameAccount(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	id, ok := accountIDParam(c)
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := ws.Accounts.Rename(c.Request.Context(), id, SanitizeString(req.Name)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	id, ok := accountIDParam(c)
	if !ok {
		return
	}
	if err := ws.Accounts.Delete(c.Request.Context(), id, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListApiKeys(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	keys, err := ws.ApiKeys.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// GenerateApiKey returns the full key once; later listings are masked
func (h *Handler) GenerateApiKey(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	key, err := ws.ApiKeys.Generate(c.Request.Context(), SanitizeString(req.Name))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (h *Handler) RevokeApiKey(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	id, ok := accountIDParam(c)
	if !ok {
		return
	}
	if err := ws.ApiKeys.Revoke(c.Request.Context(), id, confirmation(c)); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
