package api

import (
	"net/http"                       // HTTP status codes
	"securegate/internal/domain"     // Error kinds
	"securegate/internal/middleware" // Context keys
	"strconv"                        // Path params

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusFor maps an error kind to its HTTP status
var statusFor = map[domain.Kind]int{
	domain.KindValidation:            http.StatusBadRequest,
	domain.KindConflict:              http.StatusBadRequest,
	domain.KindUnauthorized:          http.StatusUnauthorized,
	domain.KindForbidden:             http.StatusForbidden,
	domain.KindNotFound:              http.StatusNotFound,
	domain.KindInvalidCredentials:    http.StatusUnauthorized,
	domain.KindInvalidOrExpiredToken: http.StatusBadRequest,
	domain.KindMailDelivery:          http.StatusInternalServerError,
}

// fail writes the failure body
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// respondError writes err as a failure response. Unexpected errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err) // Classify the error
	status, known := statusFor[kind]
	if !known {
		// Unexpected error, log full details server-side
		logrus.WithError(err).WithFields(logrus.Fields{"method": c.Request.Method, "path": c.FullPath()}).Error("request failed")
		fail(c, http.StatusInternalServerError, domain.MsgInternal)
		return
	}
	fail(c, status, err.Error()) // Domain message is safe to show
}

// idParam parses the :id path parameter
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "Invalid id") // Not a positive integer
		return 0, false
	}
	return uint(id), true
}

// queryInt reads a positive integer query parameter, or def when missing or invalid
func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return def
}

// userIDFrom returns the authenticated user id
func userIDFrom(c *gin.Context) (uint, bool) {
	v, _ := c.Get(middleware.ContextUserID) // Get userID from context
	id, ok := v.(uint)
	if !ok || id == 0 {
		fail(c, http.StatusUnauthorized, "Unauthorized - Missing token")
		return 0, false
	}
	return id, true
}
