package main

import (
	"securegate/internal/config" // Custom import path (Config)
	"securegate/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	db.Migrate(cfg.DSN()) // Users, transactions, posts, sections and images
}
