package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"buzzchat/internal/infrastructure"
	"buzzchat/internal/repository"
	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	registry        *usecases.StoreRegistry
	hub             *infrastructure.ContentHub
	alerts          *usecases.AlertService
	extensionID     string
	referralBaseURL string
	logger          *zap.Logger
}

// Options carries what SetupRoutes needs besides the services
type Options struct {
	ExtensionID     string
	ReferralBaseURL string
	Logger          *zap.Logger
}

func NewHandler(registry *usecases.StoreRegistry, hub *infrastructure.ContentHub, alerts *usecases.AlertService, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry:        registry,
		hub:             hub,
		alerts:          alerts,
		extensionID:     opts.ExtensionID,
		referralBaseURL: opts.ReferralBaseURL,
		logger:          logger,
	}
}

func SetupRoutes(r *gin.Engine, registry *usecases.StoreRegistry, auth *usecases.AuthUsecase, hub *infrastructure.ContentHub, alerts *usecases.AlertService, middleware *Middleware, opts Options) {
	h := NewHandler(registry, hub, alerts, opts)
	adminHandler := NewAdminHandler(auth, registry, hub)
	alertHandler := NewAlertHandler(alerts)

	r.Use(RequestLogger(h.logger))
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(2 << 20)) // import files are capped at 1 MiB
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// content script socket; browsers cannot set headers on websockets
	r.GET("/ws", h.ServeContentScript(middleware))

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
			if err != nil {
				if errors.Is(err, usecases.ErrUserDisabled) {
					c.JSON(http.StatusForbidden, gin.H{"error": "Account disabled"})
					return
				}
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			if !ValidUsername(regReq.Username) || len(regReq.Password) < 8 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 8 chars)"})
				return
			}
			user, err := auth.Register(c.Request.Context(), regReq.Username, regReq.Password)
			if err != nil {
				if errors.Is(err, repository.ErrUserExists) {
					c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "registered", "id": user.ID})
		})
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(10, 20))
	{
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
		api.GET("/tier", h.GetTier)
		api.PUT("/license", h.PutLicense)
		api.GET("/usage", h.GetUsage)
		api.PUT("/master", h.SetMaster)
		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.PutPreferences)

		h.registerFeatureRoutes(api)
		h.registerAccountRoutes(api)
		h.registerTransferRoutes(api)
		alertHandler.RegisterRoutes(api)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
		admin.PUT("/users/:id/tier", adminHandler.UpdateUserTier)
		admin.DELETE("/users/:id/data", adminHandler.DeleteUserData)
	}
}

// workspace resolves the caller's namespace; on failure it has already
// written the response.
func (h *Handler) workspace(c *gin.Context) (*usecases.Workspace, bool) {
	ns, _ := c.Get(ctxNamespace)
	nsStr, _ := ns.(string)
	if nsStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No workspace for this login"})
		return nil, false
	}
	ws, err := h.registry.Get(c.Request.Context(), nsStr)
	if err != nil {
		h.logger.Error("load workspace", zap.String("namespace", nsStr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return nil, false
	}
	return ws, true
}

// statusFor maps usecase errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecases.ErrInvalidInput),
		errors.Is(err, usecases.ErrImportRejected),
		errors.Is(err, usecases.ErrInvalidName),
		errors.Is(err, usecases.ErrNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, usecases.ErrLimitReached),
		errors.Is(err, usecases.ErrAccountLimit),
		errors.Is(err, usecases.ErrApiKeyLimit):
		return http.StatusPaymentRequired
	case errors.Is(err, usecases.ErrBusinessOnly):
		return http.StatusForbidden
	case errors.Is(err, usecases.ErrUnknownAccount),
		errors.Is(err, usecases.ErrUnknownApiKey),
		errors.Is(err, usecases.ErrIndexOutOfRange),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecases.ErrDefaultAccount),
		errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, usecases.ErrNoContentScript):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err with whatever notices the operation produced.
// Storage failures are logged; their text is not sent to the client.
func (h *Handler) respondError(c *gin.Context, err error, notices *usecases.NoticeCollector) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "Could not save your changes. Please try again."
	}
	body := gin.H{"error": msg}
	if notices != nil {
		body["notices"] = notices.Notices()
	}
	c.JSON(status, body)
}

// respond writes body plus the collected notices
func respond(c *gin.Context, status int, body gin.H, notices *usecases.NoticeCollector) {
	if body == nil {
		body = gin.H{}
	}
	if notices != nil {
		body["notices"] = notices.Notices()
	}
	c.JSON(status, body)
}

func (h *Handler) GetSettings(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"settings": ws.Store.Snapshot(),
		"backend":  ws.Store.RepositoryName(),
	})
}

// PutSettings replaces the document. The body goes through the same
// validation as an imported file.
func (h *Handler) PutSettings(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request too large"})
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

func (h *Handler) GetTier(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	s := ws.Store.Snapshot()
	limits := gin.H{}
	for _, kind := range []usecases.ItemKind{usecases.KindTimer, usecases.KindFAQ, usecases.KindCommand, usecases.KindTemplate} {
		d := usecases.Decide(s.Tier, kind, usecases.CountOf(s, kind))
		limits[string(kind)] = gin.H{
			"count":   usecases.CountOf(s, kind),
			"limit":   d.Limit,
			"canAdd":  d.Allowed,
			"message": d.Message,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"tier":   s.Tier,
		"banner": ws.Banner.Current(),
		"limits": limits,
	})
}

func (h *Handler) PutLicense(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var license usecases.LicenseCache
	if err := c.ShouldBindJSON(&license); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ws.Banner.SetLicense(license)
	c.JSON(http.StatusOK, gin.H{"banner": ws.Banner.Current()})
}

func (h *Handler) GetUsage(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	s := ws.Store.Snapshot()
	history, err := ws.Usage.GetUsageHistory(c.Request.Context(), 30)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quota":   repository.GetQuotaStatus(s.MessagesUsed, s.MessagesLimit+s.ReferralBonus),
		"history": history,
	})
}

func (h *Handler) SetMaster(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := ws.General.SetMasterEnabled(c.Request.Context(), req.Enabled); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"masterEnabled": req.Enabled})
}

// ServeContentScript upgrades the content script's socket. The login token
// comes as ?token= and the extension id as ?senderId=.
func (h *Handler) ServeContentScript(m *Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content script hub disabled"})
			return
		}
		if h.extensionID == "" || c.Query("senderId") != h.extensionID {
			h.logger.Warn("content script connection from unknown sender", zap.String("sender_id", c.Query("senderId")))
			c.JSON(http.StatusForbidden, gin.H{"error": "Unknown sender"})
			return
		}
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		claims, err := m.parseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		ns, _ := claims["namespace"].(string)
		if err := h.hub.ServeWS(c.Writer, c.Request, ns); err != nil {
			h.logger.Warn("content script upgrade failed", zap.Error(err))
		}
	}
}
