package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"outreach-dialer/pkg/logger"
)

const bearerPrefix = "Bearer "

// RequireAccessToken verifies the bearer token and attaches the Identity.
// Role checks live in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := m.Verify(strings.TrimPrefix(raw, bearerPrefix), TokenTypeAccess, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), Identity{UserID: claims.UserID, AccountID: claims.AccountID, Role: claims.Role})
		ctx = logger.ForAccount(ctx, claims.AccountID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("account_id", claims.AccountID)
		c.Next()
	}
}
