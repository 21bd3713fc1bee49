package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"buzzchat/internal/repository"
	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Context keys set by the auth middleware
const (
	ctxUserID    = "user_id"
	ctxNamespace = "namespace"
	ctxRole      = "role"
	ctxApiKey    = "api_key_id"

	headerApiKey = "X-API-Key"
)

type Middleware struct {
	jwtSecret    []byte
	registry     *usecases.StoreRegistry
	rateLimiters map[string]*rate.Limiter
	mu           sync.Mutex
}

func NewMiddleware(secret string, registry *usecases.StoreRegistry) *Middleware {
	return &Middleware{
		jwtSecret:    []byte(secret),
		registry:     registry,
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

func (m *Middleware) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	ns, _ := claims["namespace"].(string)
	if ns == "" {
		return nil, errors.New("token without namespace")
	}
	return claims, nil
}

// AuthRequired accepts either a popup login token (Authorization: Bearer) or
// a Business API key (X-API-Key). Both resolve to a storage namespace.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(headerApiKey); key != "" {
			m.authenticateApiKey(c, key)
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := m.parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(ctxUserID, claims["user_id"])
		c.Set(ctxNamespace, claims["namespace"])
		c.Set(ctxRole, claims["role"])
		c.Next()
	}
}

func (m *Middleware) authenticateApiKey(c *gin.Context, key string) {
	if m.registry == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API keys not accepted"})
		return
	}
	ctx := c.Request.Context()
	ns, err := m.registry.KeyIndex().Lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check API key"})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}
	ws, err := m.registry.Get(ctx, ns)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load workspace"})
		return
	}
	k, err := ws.ApiKeys.Authenticate(ctx, key)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case usecases.IsUnknownKey(err):
			status = http.StatusUnauthorized
		case errors.Is(err, usecases.ErrBusinessOnly):
			status = http.StatusForbidden
		}
		c.AbortWithStatusJSON(status, gin.H{"error": "Invalid API key"})
		return
	}

	c.Set(ctxUserID, "apikey:"+k.ID)
	c.Set(ctxNamespace, ns)
	c.Set(ctxRole, "api")
	c.Set(ctxApiKey, k.ID)
	c.Next()
}

// AdminRequired must follow AuthRequired
func (m *Middleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(ctxRole); role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// RateLimitPerUser limits requests based on "user_id" from context (must follow AuthRequired)
func (m *Middleware) RateLimitPerUser(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ctxUserID)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User identity not found for rate limiting"})
			return
		}
		key := fmt.Sprint(userID)

		m.mu.Lock()
		limiter, exists := m.rateLimiters[key]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			m.rateLimiters[key] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// CORSMiddleware allows Cross-Origin requests
func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'none'")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// redactSecret keeps the scheme or key prefix and hides the rest
func redactSecret(v string) string {
	if v == "" {
		return ""
	}
	if i := strings.IndexByte(v, ' '); i > 0 {
		return v[:i] + " [REDACTED]"
	}
	if strings.HasPrefix(v, usecases.ApiKeyPrefix) {
		return usecases.ApiKeyPrefix + "[REDACTED]"
	}
	return "[REDACTED]"
}

// RequestLogger logs one line per request. Credentials are never logged in
// clear and request bodies are not logged at all: they carry settings and
// chat text.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("raw_path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startedAt)),
		}
		if auth := c.GetHeader("Authorization"); auth != "" {
			fields = append(fields, zap.String("authorization", redactSecret(auth)))
		}
		if key := c.GetHeader(headerApiKey); key != "" {
			fields = append(fields, zap.String("api_key", redactSecret(key)))
		}
		if ns, ok := c.Get(ctxNamespace); ok {
			fields = append(fields, zap.Any("namespace", ns))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("http request completed", fields...)
		case status >= 400:
			logger.Warn("http request completed", fields...)
		default:
			logger.Info("http request completed", fields...)
		}
	}
}
