package api

import (
	"net/http"                    // HTTP status codes
	"securegate/internal/metrics" // Cleanup failure counter
	"securegate/internal/service" // Inputs

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// FetchProfileHandler returns the caller's profile
func FetchProfileHandler(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c) // Get userID from context
		if !ok {
			return
		}
		user, err := users.GetProfile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
	}
}

// UpdateProfileHandler applies a partial update to the caller's profile
func UpdateProfileHandler(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c) // Get userID from context
		if !ok {
			return
		}
		var req service.ProfileInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		user, err := users.UpdateProfile(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile updated successfully", "data": user})
	}
}

// UpdateProfileImageHandler replaces the caller's profile image with the uploaded `image` file
func UpdateProfileImageHandler(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c) // Get userID from context
		if !ok {
			return
		}
		fh, _ := c.FormFile("image") // A missing file is reported by the service
		res, err := users.ReplaceImage(c.Request.Context(), userID, fh)
		if err != nil {
			respondError(c, err)
			return
		}
		// A failed delete of the old file is logged and counted, never returned
		if res.CleanupErr != nil {
			metrics.ImageCleanupFailuresTotal.Inc()
			logrus.WithError(res.CleanupErr).WithFields(logrus.Fields{"userID": userID, "path": res.OldPath}).Warn("failed to remove previous profile image")
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Profile image updated successfully", "data": gin.H{"image": res.Path}})
	}
}
