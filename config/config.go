package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	GatewayBaseURL     string
	GatewayKeyID       string
	GatewayKeySecret   string
	GatewayCurrency    string
	SMTPHost           string
	SMTPPort           string
	SMTPFrom           string
	SMTPPassword       string
	SupportEmail       string
	LogLevel           string
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			// so it's okay if .env files don't exist
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		GatewayBaseURL:     getEnv("PAYMENT_GATEWAY_URL", "https://api.paygate.example.com"),
		GatewayKeyID:       getEnv("PAYMENT_GATEWAY_KEY_ID", ""),
		GatewayKeySecret:   getEnv("PAYMENT_GATEWAY_KEY_SECRET", ""),
		GatewayCurrency:    getEnv("PAYMENT_GATEWAY_CURRENCY", "USD"),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPFrom:           getEnv("SMTP_FROM", "orders@devforge.studio"),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SupportEmail:       getEnv("SUPPORT_EMAIL", "support@devforge.studio"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set.
// Gateway credentials are deliberately not required at startup: a missing
// secret fails the individual charge operation with a configuration error
// instead of keeping the whole API down.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// HasGatewayCredentials reports whether the payment gateway is configured
func (c *Config) HasGatewayCredentials() bool {
	return c.GatewayKeyID != "" && c.GatewayKeySecret != ""
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetConfig returns the loaded configuration instance. When nothing was
// loaded it returns a config with no environment set, so development-only
// affordances (like plain-HTTP payment routes) stay off.
func GetConfig() *Config {
	if appConfig == nil {
		appConfig = &Config{
			GatewayCurrency: "USD",
		}
	}
	return appConfig
}

// SetConfig replaces the configuration instance (primarily for testing)
func SetConfig(c *Config) {
	appConfig = c
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
