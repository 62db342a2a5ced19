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
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Booking  BookingConfig
	Esewa    EsewaConfig
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

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// BookingConfig holds rental policy configuration
type BookingConfig struct {
	DriverDayRate  float64 // Flat per-day surcharge when a driver is requested
	MinRentalDays  int
	MaxRentalDays  int
	GatewayTimeout time.Duration // Bound on the payment initiation call
}

// EsewaConfig holds eSewa payment gateway configuration
type EsewaConfig struct {
	MerchantID     string // Merchant/service code (scd)
	Secret         string // Secret used to sign gateway requests (never exposed to clients)
	PaymentURL     string // Gateway form endpoint
	StatusCheckURL string // Transaction status query endpoint
	SuccessURL     string // Redirect target after a successful payment
	FailureURL     string // Redirect target after a failed payment
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
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Booking: BookingConfig{
			DriverDayRate:  getEnvAsFloat("DRIVER_DAY_RATE", 500),
			MinRentalDays:  getEnvAsInt("MIN_RENTAL_DAYS", 1),
			MaxRentalDays:  getEnvAsInt("MAX_RENTAL_DAYS", 30),
			GatewayTimeout: time.Duration(getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Esewa: EsewaConfig{
			MerchantID:     getEnv("ESEWA_MERCHANT_ID", ""),
			Secret:         getEnv("ESEWA_SECRET", ""),
			PaymentURL:     getEnv("ESEWA_PAYMENT_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
			StatusCheckURL: getEnv("ESEWA_STATUS_CHECK_URL", "https://rc.esewa.com.np/api/epay/transaction/status/"),
			SuccessURL:     getEnv("ESEWA_SUCCESS_URL", ""),
			FailureURL:     getEnv("ESEWA_FAILURE_URL", ""),
		},
	}

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

	if c.Booking.MinRentalDays < 1 {
		return fmt.Errorf("MIN_RENTAL_DAYS must be at least 1")
	}

	if c.Booking.MaxRentalDays < c.Booking.MinRentalDays {
		return fmt.Errorf("MAX_RENTAL_DAYS must not be below MIN_RENTAL_DAYS")
	}

	// Gateway credentials are required outside development so a misconfigured
	// deploy fails at startup instead of at the first checkout
	if c.Server.Environment == "production" {
		if c.Esewa.MerchantID == "" {
			return fmt.Errorf("ESEWA_MERCHANT_ID is required in production")
		}
		if c.Esewa.Secret == "" {
			return fmt.Errorf("ESEWA_SECRET is required in production")
		}
		if c.Esewa.SuccessURL == "" || c.Esewa.FailureURL == "" {
			return fmt.Errorf("ESEWA_SUCCESS_URL and ESEWA_FAILURE_URL are required in production")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
