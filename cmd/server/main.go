package main

import (
	"context"                       // Redis ping and shutdown deadline
	"errors"                        // Server closed check
	"net/http"                      // HTTP server
	"os"                            // Signals
	"os/signal"                     // Graceful shutdown
	"securegate/internal/api"       // Custom package for API handlers
	"securegate/internal/config"    // Custom package for configuration
	"securegate/internal/db"        // Database connection
	"securegate/internal/mailer"    // SMTP mail
	"securegate/internal/ratelimit" // Forgot-password throttling
	"securegate/internal/service"   // Use cases
	"securegate/internal/store"     // Persistence
	"securegate/internal/utils"     // Sessions and uploads
	"syscall"                       // SIGTERM
	"time"                          // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set") // Refuse to sign sessions with an empty key
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	gdb, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client, optional
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logrus.Warn("REDIS_ADDR not set: post cache, session revocation and reset throttling are disabled")
	}

	// Setup upload storage
	files, err := utils.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logrus.Fatalf("failed to prepare upload dir: %v", err)
	}

	// Wire stores and services
	users := store.NewUserStore(gdb)
	sessions := utils.NewSessionManager(cfg.JWTSecret, utils.NewRevoker(redisClient))
	mail := mailer.NewSMTPSender(mailer.Config{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
	})
	limiter := ratelimit.New(redisClient, "ratelimit:forgot-password:", cfg.ForgotPasswordLimit, cfg.ForgotPasswordWindow)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		Auth:         service.NewAuthService(users, sessions, mail, limiter, cfg.ClientURL),
		Users:        service.NewUserService(users, files, sessions),
		Posts:        service.NewPostService(store.NewPostStore(gdb), files, redisClient),
		Transactions: service.NewTransactionService(store.NewTransactionStore(gdb)),
		Sessions:     sessions,
		SecureCookie: cfg.IsProd,
		UploadDir:    cfg.UploadDir,
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("http shutdown failed: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}
