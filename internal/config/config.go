package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Reservation lifecycle configuration
	Reservation ReservationConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Payment gateway configuration
	Payment PaymentConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// ReservationConfig holds seat hold lifecycle configuration
type ReservationConfig struct {
	HoldTTL            time.Duration // how long a seat hold stays valid
	ExpiringSoonWindow time.Duration // remaining time below which clients are warned
	SweepInterval      time.Duration // how often the expiry sweep runs
	SweepBatchSize     int           // max reservations processed per sweep run
}

// PaymentConfig holds Khalti ePayment gateway configuration
type PaymentConfig struct {
	Environment string // "sandbox" or "production"
	SecretKey   string // Khalti live/test secret key (SECRET - never expose to client)
	ReturnURL   string // URL the gateway redirects to after payment
	WebsiteURL  string // Merchant website URL shown on the payment page
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRequestLog bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_EXPIRY_MINUTES", 15)) * time.Minute,
		},
		Reservation: ReservationConfig{
			HoldTTL:            time.Duration(getEnvAsInt("RESERVATION_HOLD_TTL_MINUTES", 10)) * time.Minute,
			ExpiringSoonWindow: time.Duration(getEnvAsInt("RESERVATION_EXPIRING_SOON_SECONDS", 120)) * time.Second,
			SweepInterval:      time.Duration(getEnvAsInt("RESERVATION_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			SweepBatchSize:     getEnvAsInt("RESERVATION_SWEEP_BATCH_SIZE", 100),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Payment: PaymentConfig{
			Environment: getEnv("KHALTI_ENVIRONMENT", "sandbox"),
			SecretKey:   getEnv("KHALTI_SECRET_KEY", ""),
			ReturnURL:   getEnv("KHALTI_RETURN_URL", ""),
			WebsiteURL:  getEnv("KHALTI_WEBSITE_URL", ""),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Reservation.HoldTTL <= 0 {
		return fmt.Errorf("RESERVATION_HOLD_TTL_MINUTES must be positive")
	}

	if c.Reservation.SweepBatchSize <= 0 {
		return fmt.Errorf("RESERVATION_SWEEP_BATCH_SIZE must be positive")
	}

	// Payment credentials are only mandatory outside local development
	if c.Server.Environment == "production" {
		if c.Payment.SecretKey == "" {
			return fmt.Errorf("KHALTI_SECRET_KEY is required in production")
		}
		if c.Payment.ReturnURL == "" {
			return fmt.Errorf("KHALTI_RETURN_URL is required in production")
		}
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsBool gets an environment variable as boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
