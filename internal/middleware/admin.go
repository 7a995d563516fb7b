package middleware

import (
	"net/http"                   // HTTP status codes
	"securegate/internal/domain" // Roles
	"slices"                     // Role membership

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireRoles lets the request through only when the verified role is one of roles.
// It must run after AuthMiddleware.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c) // Get claims from context
		// Check if the caller was authenticated
		if !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized - Missing token"})
			return
		}
		// Check if the role is allowed
		if !slices.Contains(roles, claims.Role) {
			// If not, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Forbidden - Admins only"})
			return
		}
		c.Next() // Proceed to the next handler
	}
}

// AdminOnlyMiddleware allows admins and super admins
func AdminOnlyMiddleware() gin.HandlerFunc {
	return RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin)
}
