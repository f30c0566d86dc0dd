// Package config loads the engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config represents the global configuration for the contact graph engine.
type Config struct {
	// Oracle configuration
	Oracle struct {
		OpenAI struct {
			APIKey      string
			Model       string
			BaseURL     string
			Temperature float64
			Timeout     time.Duration
		}

		// Retry configuration for the oracle client wrapper. Disabled by
		// default; the engine surfaces failures once.
		Retry struct {
			Enabled     bool
			MaxAttempts int
		}
	}

	// Store configuration
	Store struct {
		Redis struct {
			URL      string
			Password string
			DB       int
			TTL      time.Duration
		}
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	config := &Config{}

	config.Oracle.OpenAI.APIKey = getEnv("OPENAI_API_KEY", "")
	config.Oracle.OpenAI.Model = getEnv("OPENAI_MODEL", "gpt-4o")
	config.Oracle.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", "")
	config.Oracle.OpenAI.Temperature = getEnvFloat("OPENAI_TEMPERATURE", 0.2)
	config.Oracle.OpenAI.Timeout = getEnvDuration("OPENAI_TIMEOUT", 60*time.Second)

	config.Oracle.Retry.Enabled = getEnvBool("ORACLE_RETRY_ENABLED", false)
	config.Oracle.Retry.MaxAttempts = getEnvInt("ORACLE_RETRY_MAX_ATTEMPTS", 3)

	config.Store.Redis.URL = getEnv("REDIS_URL", "localhost:6379")
	config.Store.Redis.Password = getEnv("REDIS_PASSWORD", "")
	config.Store.Redis.DB = getEnvInt("REDIS_DB", 0)
	config.Store.Redis.TTL = getEnvDuration("REDIS_TTL", 0)

	return config
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
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
