package middleware

import (
	"context"                   // Context for revocation lookups
	"net/http"                  // HTTP status codes
	"securegate/internal/utils" // Session claims
	"strings"                   // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework
)

// SessionCookie is the name of the cookie carrying the session token
const SessionCookie = "jwt"

// Context keys set by AuthMiddleware
const (
	ContextUserID = "userID"
	ContextRole   = "role"
	ContextClaims = "claims"
)

// Verifier checks a session token
type Verifier interface {
	Verify(ctx context.Context, token string) (*utils.Claims, error)
}

// tokenFromRequest reads the session cookie, falling back to an Authorization: Bearer header
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie // Cookie wins over the header
	}
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")) // Extract the token string
	}
	return ""
}

// AuthMiddleware validates the session token and stores the caller's identity in the context
func AuthMiddleware(sessions Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFromRequest(c) // Cookie or bearer token
		// Check if a token was sent at all
		if tokenStr == "" {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized - Missing token"})
			return
		}
		claims, err := sessions.Verify(c.Request.Context(), tokenStr) // Signature, expiry and revocation
		if err != nil {
			// If verification fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized - Invalid token"})
			return
		}
		c.Set(ContextUserID, claims.UserID) // Store userID in context
		c.Set(ContextRole, claims.Role)     // Store role in context
		c.Set(ContextClaims, claims)        // Store claims for logout
		c.Next()                            // Proceed to the next handler
	}
}

// ClaimsFrom returns the verified claims stored by AuthMiddleware
func ClaimsFrom(c *gin.Context) (*utils.Claims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok && claims != nil
}
