package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vendora/presence/internal/config"
	"vendora/presence/internal/security"
)

const currentUserKey = "current_user_id"

// Auth verifies the platform access token and stashes the caller's user id.
// Token issuance lives in the auth service; this middleware only verifies.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(currentUserKey, claims.UserID)

		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's user id, if any.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(currentUserKey)
}
