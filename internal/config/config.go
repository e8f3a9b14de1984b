package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"billing/internal/logger"
)

type Config struct {
	// Database Configuration
	DBPath string // SQLite database path, ":memory:" for ephemeral

	// Scheduler Configuration
	PollInterval     time.Duration // How often the scheduler checks for due schedules
	StopTimeout      time.Duration // Bounded wait for the worker on shutdown
	PaymentTermsDays int           // Due-date offset for generated invoices

	// Billing Defaults
	DefaultCurrency string
	DefaultTaxRate  float64 // Percent, applied when an invoice draft carries none

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DBPath:           getEnv("BILLING_DB_PATH", "billing.db"),
		PollInterval:     getEnvDuration("SCHEDULER_POLL_INTERVAL", time.Hour),
		StopTimeout:      getEnvDuration("SCHEDULER_STOP_TIMEOUT", 5*time.Second),
		PaymentTermsDays: getEnvInt("PAYMENT_TERMS_DAYS", 30),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "USD"),
		DefaultTaxRate:   getEnvFloat("DEFAULT_TAX_RATE", 0),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:    getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:        getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("BILLING_DB_PATH is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_INTERVAL must be positive")
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_STOP_TIMEOUT must be positive")
	}
	if c.PaymentTermsDays < 0 {
		return fmt.Errorf("PAYMENT_TERMS_DAYS must not be negative")
	}
	if c.DefaultTaxRate < 0 {
		return fmt.Errorf("DEFAULT_TAX_RATE must not be negative")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
