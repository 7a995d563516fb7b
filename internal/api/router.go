package api

import (
	"net/http"                       // HTTP status codes
	"securegate/internal/middleware" // Auth and logging middleware

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
)

// Deps holds everything the routes need
type Deps struct {
	Auth         AuthService
	Users        UserService
	Posts        PostService
	Transactions TransactionService
	Sessions     middleware.Verifier
	SecureCookie bool   // Set the Secure flag on the session cookie
	UploadDir    string // Directory served under /uploads
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()                                    // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger()) // Recover panics and log requests
	r.MaxMultipartMemory = 8 << 20                    // Larger uploads spill to temp files

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }) // Liveness
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))                                         // Prometheus scrape
	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir) // Uploaded images
	}

	auth := middleware.AuthMiddleware(d.Sessions) // Session check
	admin := middleware.AdminOnlyMiddleware()     // Role check, after auth

	// Auth routes
	r.POST("/register", RegisterHandler(d.Auth))                                    // Registration endpoint
	r.POST("/login", LoginHandler(d.Auth, d.SecureCookie))                          // Login endpoint
	r.POST("/logout", auth, LogoutHandler(d.Auth, d.SecureCookie))                  // Logout endpoint
	r.POST("/forgot-password", ForgotPasswordHandler(d.Auth))                       // Reset request endpoint
	r.POST("/reset-password", ResetPasswordHandler(d.Auth))                         // Reset endpoint
	r.POST("/change-password", auth, ChangePasswordHandler(d.Auth, d.SecureCookie)) // Change password endpoint

	// Profile routes (protected by session)
	r.GET("/fetch-profile", auth, FetchProfileHandler(d.Users))            // Own profile
	r.PUT("/user/profile", auth, UpdateProfileHandler(d.Users))            // Update own profile
	r.PUT("/user/profile-image", auth, UpdateProfileImageHandler(d.Users)) // Replace own image

	// Public post routes
	r.GET("/posts", ListPostsHandler(d.Posts))   // List posts
	r.GET("/posts/:id", GetPostHandler(d.Posts)) // Single post

	// Finance routes (protected by session)
	financeGroup := r.Group("/finance", auth)
	financeGroup.POST("/create", CreateTransactionHandler(d.Transactions))       // Create transaction
	financeGroup.GET("/fetch", FetchTransactionsHandler(d.Transactions))         // Paginated ledger
	financeGroup.PUT("/update/:id", UpdateTransactionHandler(d.Transactions))    // Update transaction
	financeGroup.DELETE("/delete/:id", DeleteTransactionHandler(d.Transactions)) // Delete transaction

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", auth, admin)
	adminGroup.GET("/users", ListUsersHandler(d.Users))         // List users
	adminGroup.PUT("/users/:id", UpdateUserHandler(d.Users))    // Update user
	adminGroup.DELETE("/users/:id", DeleteUserHandler(d.Users)) // Delete user
	adminGroup.POST("/posts", CreatePostHandler(d.Posts))       // Create post
	adminGroup.PUT("/posts/:id", UpdatePostHandler(d.Posts))    // Update post
	adminGroup.DELETE("/posts/:id", DeletePostHandler(d.Posts)) // Delete post

	return r
}
