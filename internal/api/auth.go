package api

import (
	"net/http"                       // HTTP status codes
	"securegate/internal/middleware" // Session cookie and claims
	"securegate/internal/service"    // Inputs
	"securegate/internal/utils"      // Session lifetime

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username"` // Username, never the email
	Password string `json:"password"` // Plaintext password
}

// ForgotPasswordRequest is the forgot-password payload
type ForgotPasswordRequest struct {
	Email string `json:"email"` // Account email
}

// ResetPasswordRequest is the reset-password payload
type ResetPasswordRequest struct {
	Token    string `json:"token"`    // Raw token from the email link
	Password string `json:"password"` // New password
}

// setSessionCookie stores the session token in an httpOnly, SameSite=Strict cookie
func setSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, token, int(utils.SessionTTL.Seconds()), "/", "", secure, true)
}

// clearSessionCookie expires the session cookie
func clearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", secure, true)
}

// RegisterHandler creates a member account
func RegisterHandler(auth AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		user, err := auth.Register(c.Request.Context(), req) // Validate and create the user
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the created user, the password hash is never serialized
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully", "data": user})
	}
}

// LoginHandler authenticates a user and sets the session cookie
func LoginHandler(auth AuthService, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		user, token, err := auth.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, err) // Same response for unknown user and wrong password
			return
		}
		setSessionCookie(c, token, secureCookie) // Token travels only in the cookie
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "data": user.Public()})
	}
}

// LogoutHandler revokes the current token and clears the cookie
func LogoutHandler(auth AuthService, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := middleware.ClaimsFrom(c) // Set by AuthMiddleware
		if err := auth.Logout(c.Request.Context(), claims); err != nil {
			// The client still discards the cookie
			logrus.WithError(err).Warn("failed to revoke session on logout")
		}
		clearSessionCookie(c, secureCookie)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
	}
}

// ForgotPasswordHandler starts a password reset. The answer never reveals whether the account exists.
func ForgotPasswordHandler(auth AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if err := auth.RequestReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": service.ResetRequestedMessage})
	}
}

// ResetPasswordHandler consumes a reset token
func ResetPasswordHandler(auth AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if err := auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			respondError(c, err) // Wrong, expired and used tokens look the same
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password has been reset successfully"})
	}
}

// ChangePasswordHandler changes the caller's password and forces a new login
func ChangePasswordHandler(auth AuthService, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c) // Get userID from context
		if !ok {
			return
		}
		var req service.ChangePasswordInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		if err := auth.ChangePassword(c.Request.Context(), userID, req); err != nil {
			respondError(c, err)
			return
		}
		clearSessionCookie(c, secureCookie) // Force re-login
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully. Please log in again."})
	}
}
