package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address, empty disables cache and revocation
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment
	ClientURL  string // Frontend base URL used in reset links
	UploadDir  string // Directory holding uploaded images
	SMTPHost   string // SMTP server host
	SMTPPort   int    // SMTP server port
	SMTPUser   string // SMTP username
	SMTPPass   string // SMTP password
	MailFrom   string // Sender address for outgoing mail

	ForgotPasswordLimit  int           // Reset requests allowed per email per window, 0 disables
	ForgotPasswordWindow time.Duration // Window for ForgotPasswordLimit
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	smtpPort, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		smtpPort = 587 // Submission port by default
	}
	limit, _ := strconv.Atoi(os.Getenv("FORGOT_PASSWORD_LIMIT"))
	window, err := time.ParseDuration(os.Getenv("FORGOT_PASSWORD_WINDOW"))
	if err != nil || window <= 0 {
		window = 15 * time.Minute // Same lifetime as a reset token
	}
	return &Config{
		AppPort:              getEnv("APP_PORT", "8080"),     // Application port
		DBUser:               os.Getenv("DB_USER"),           // Database user
		DBPassword:           os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:               os.Getenv("DB_HOST"),           // Database host
		DBPort:               getEnv("DB_PORT", "3306"),      // Database port
		DBName:               os.Getenv("DB_NAME"),           // Database name
		JWTSecret:            os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:            os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:            os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:              redisDB,                        // Redis database number
		IsProd:               os.Getenv("IS_PROD") == "true", // Is production environment
		ClientURL:            getEnv("CLIENT_URL", "http://localhost:3000"),
		UploadDir:            getEnv("UPLOAD_DIR", "uploads"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             smtpPort,
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPass:             os.Getenv("SMTP_PASS"),
		MailFrom:             os.Getenv("MAIL_FROM"),
		ForgotPasswordLimit:  limit,
		ForgotPasswordWindow: window,
	}
}

// DSN returns the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or fallback when it is unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
