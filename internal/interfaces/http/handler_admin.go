package http

import (
	"errors"
	"net/http"

	"buzzchat/internal/entities"
	"buzzchat/internal/infrastructure"
	"buzzchat/internal/repository"
	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	auth     *usecases.AuthUsecase
	registry *usecases.StoreRegistry
	hub      *infrastructure.ContentHub
}

func NewAdminHandler(auth *usecases.AuthUsecase, registry *usecases.StoreRegistry, hub *infrastructure.ContentHub) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		registry: registry,
		hub:      hub,
	}
}

func (h *AdminHandler) connected(ns string) int {
	if h.hub == nil {
		return 0
	}
	return h.hub.Connected(ns)
}

// GetStats returns platform statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	var active, admins, scripts int
	for _, u := range users {
		if u.IsActive {
			active++
		}
		if u.Role == "admin" {
			admins++
		}
		scripts += h.connected(u.Namespace)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":       len(users),
		"active_users":      active,
		"admin_count":       admins,
		"loaded_workspaces": h.registry.Loaded(),
		"connected_scripts": scripts,
	})
}

// GetAllUsers returns list of all users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	result := make([]gin.H, len(users))
	for i, u := range users {
		result[i] = gin.H{
			"id":                u.ID,
			"username":          u.Username,
			"role":              u.Role,
			"namespace":         u.Namespace,
			"is_active":         u.IsActive,
			"created_at":        u.CreatedAt,
			"connected_scripts": h.connected(u.Namespace),
		}
	}

	c.JSON(http.StatusOK, result)
}

// UpdateUserStatus enables/disables a user account
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	userID := c.Param("id")
	var payload struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Don't allow disabling self
	if currentUserID, _ := c.Get(ctxUserID); currentUserID == userID && !payload.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot disable your own account"})
		return
	}

	if err := h.auth.SetUserActive(c.Request.Context(), userID, payload.IsActive); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "is_active": payload.IsActive})
}

// UpdateUserTier applies a plan change to the user's active settings. It
// stands in for the license server, which is the only other writer of tier.
func (h *AdminHandler) UpdateUserTier(c *gin.Context) {
	var payload struct {
		Tier          string `json:"tier"`
		MessagesLimit *int   `json:"messages_limit"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || !entities.Tier(payload.Tier).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tier must be free, pro or business"})
		return
	}
	if payload.MessagesLimit != nil && *payload.MessagesLimit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Limits cannot be negative"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.auth.GetUser(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	ws, err := h.registry.Get(ctx, user.Namespace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	err = ws.Store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Tier = entities.Tier(payload.Tier)
		if payload.MessagesLimit != nil {
			s.MessagesLimit = *payload.MessagesLimit
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tier"})
		return
	}

	s := ws.Store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":         "updated",
		"tier":           s.Tier,
		"messages_limit": s.MessagesLimit,
	})
}

// DeleteUserData wipes a user's stored settings, accounts and keys
func (h *AdminHandler) DeleteUserData(c *gin.Context) {
	if !Confirmed(c.Query("confirm")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": usecases.ErrNotConfirmed.Error()})
		return
	}
	ctx := c.Request.Context()
	user, err := h.auth.GetUser(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	// drop the cached workspace first so a pending write cannot recreate data
	if err := h.registry.Drop(ctx, user.Namespace); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unload settings"})
		return
	}
	if _, err := h.auth.DeleteUserData(ctx, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "namespace": user.Namespace})
}
