package middleware

import (
	"github.com/gin-gonic/gin"

	"designhub-points/pkg/errutil"
)

const (
	userIDKey  = "identity.user_id"
	adminIDKey = "identity.admin_id"
)

// Identity reads the caller identity the gateway injects after auth. Routes
// mounted behind it can rely on UserID being present.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(401, errutil.Unauthorized("missing user identity"))
			return
		}
		c.Set(userIDKey, userID)
		if adminID := c.GetHeader("X-Admin-ID"); adminID != "" {
			c.Set(adminIDKey, adminID)
		}
		c.Next()
	}
}

// AdminOnly rejects requests without an admin identity.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-ID") == "" {
			c.AbortWithStatusJSON(403, errutil.Forbidden("", "admin access required"))
			return
		}
		c.Set(adminIDKey, c.GetHeader("X-Admin-ID"))
		c.Next()
	}
}

func UserID(c *gin.Context) string  { return c.GetString(userIDKey) }
func AdminID(c *gin.Context) string { return c.GetString(adminIDKey) }
