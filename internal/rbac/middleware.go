package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach-dialer/internal/auth"
)

// RequireAccount aborts when the verified identity carries no account.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.AccountID(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows the caller when their role is listed. Service roles
// are never implied by a human role; list them explicitly.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if _, ok := set[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
