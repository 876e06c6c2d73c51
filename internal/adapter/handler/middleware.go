package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rl1809/bizdesk/internal/adapter/auth"
	"github.com/rl1809/bizdesk/internal/obs"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "requestID"
	ctxUserID    = "userID"
	ctxEmail     = "email"
)

// TokenVerifier validates bearer tokens issued at login.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		obs.Logger.Info("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxRequestID),
		)
	}
}

func corsPolicy() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// authenticate requires a bearer token. Browsers cannot set headers on a
// websocket handshake, so routes that upgrade pass allowQuery to accept the
// token query parameter as well.
func authenticate(tokens TokenVerifier, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		if allowQuery {
			tokenString = c.Query("token")
		}
		if header := c.GetHeader("Authorization"); header != "" {
			tokenString = strings.TrimPrefix(header, "Bearer ")
			if tokenString == header {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
				return
			}
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

// requireAdmin runs after authenticate and only admits the listed emails.
func requireAdmin(admins map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !admins[strings.ToLower(c.GetString(ctxEmail))] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
