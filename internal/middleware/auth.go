package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stock-reconciliation-service/internal/models"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
	c.Abort()
}

// ActorMiddleware extracts the acting user from headers set by the
// gateway proxy.
// SECURITY: No default actor fallback - requests without an identity are
// rejected. Every ledger mutation is attributed to this actor in the
// movement log.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip identity for health check endpoints
		if strings.HasPrefix(c.Request.URL.Path, "/health") ||
			strings.HasPrefix(c.Request.URL.Path, "/ready") ||
			strings.HasPrefix(c.Request.URL.Path, "/metrics") {
			c.Next()
			return
		}

		actorID := c.GetHeader("X-User-ID")
		if actorID == "" {
			abortWithError(c, http.StatusUnauthorized, "ACTOR_REQUIRED",
				"Acting user is required. Include X-User-ID header.")
			return
		}

		roles := []string{"staff"}
		if header := c.GetHeader("X-User-Roles"); header != "" {
			roles = roles[:0]
			for _, role := range strings.Split(header, ",") {
				if role = strings.TrimSpace(role); role != "" {
					roles = append(roles, role)
				}
			}
		}

		c.Set("actor_id", actorID)
		c.Set("user_roles", roles)

		c.Next()
	}
}

// RequireRole guards supervisor-only routes. Admins pass every check.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, ok := c.Get("user_roles")
		if !ok {
			abortWithError(c, http.StatusForbidden, "NO_ROLES", "User roles not found")
			return
		}
		userRoles, ok := roles.([]string)
		if !ok {
			abortWithError(c, http.StatusForbidden, "INVALID_ROLES", "Invalid user roles format")
			return
		}

		for _, role := range userRoles {
			if role == requiredRole || role == "admin" {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS",
			"Required role: "+requiredRole)
	}
}

// GetActorID retrieves the acting user from gin context
func GetActorID(c *gin.Context) string {
	return c.GetString("actor_id")
}
