package api

import (
	"net/http"                    // HTTP status codes
	"securegate/internal/service" // Inputs

	"github.com/gin-gonic/gin" // Gin web framework
)

// ListUsersHandler returns one page of users, without credentials
func ListUsersHandler(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := queryInt(c, "page", 1)           // Default page number
		pageSize := queryInt(c, "page_size", 20) // Default page size, capped by the service
		list, pagination, err := users.ListUsers(c.Request.Context(), page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,       // Request succeeded
			"data":       list,       // List of users
			"pagination": pagination, // Total, page, limit and total pages
		})
	}
}

// UpdateUserHandler lets an admin change any profile field or the role
func UpdateUserHandler(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Target user
		if !ok {
			return
		}
		var req service.AdminUserInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		user, err := users.UpdateUser(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User updated successfully", "data": user})
	}
}

// DeleteUserHandler removes an account
func DeleteUserHandler(users UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Target user
		if !ok {
			return
		}
		if err := users.DeleteUser(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
	}
}
