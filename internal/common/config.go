package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Watch     WatchConfig
	OCR       OCRConfig
	Agents    AgentConfig
	Estimates EstimatesConfig
	LogLevel  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string
}

// WatchConfig holds watch-directory configuration
type WatchConfig struct {
	Dir         string
	Debounce    time.Duration
	InitialScan bool
}

// OCRConfig holds OCR API configuration
type OCRConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// AgentConfig holds extraction-agent backend configuration
type AgentConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// EstimatesConfig holds estimate-pool backend configuration
type EstimatesConfig struct {
	APIToken string
	BaseURL  string
	Timeout  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/reconciler.db"),
		},
		Watch: WatchConfig{
			Dir:         getEnv("CONTRACTS_WATCH_DIR", "./contracts/incoming"),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", true),
		},
		OCR: OCRConfig{
			APIKey:  getEnv("OCR_API_KEY", ""),
			BaseURL: getEnv("OCR_BASE_URL", "https://api.mistral.ai/v1"),
			Model:   getEnv("OCR_MODEL", "mistral-ocr-latest"),
			Timeout: getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),
		},
		Agents: AgentConfig{
			APIKey:      getEnv("AGENT_API_KEY", ""),
			BaseURL:     getEnv("AGENT_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("AGENT_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat64("AGENT_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("AGENT_TIMEOUT", 90*time.Second),
		},
		Estimates: EstimatesConfig{
			APIToken: getEnv("ESTIMATES_API_TOKEN", ""),
			BaseURL:  getEnv("ESTIMATES_BASE_URL", ""),
			Timeout:  getEnvAsDuration("ESTIMATES_TIMEOUT", 30*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks required credentials before any work is attempted.
func (c *Config) Validate() error {
	if c.OCR.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OCR_API_KEY is required", ErrInvalidInput)
	}
	if c.Agents.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "AGENT_API_KEY is required", ErrInvalidInput)
	}
	if c.Estimates.APIToken == "" {
		return NewAppError("CONFIG_ERROR", "ESTIMATES_API_TOKEN is required", ErrInvalidInput)
	}
	if c.Estimates.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "ESTIMATES_BASE_URL is required", ErrInvalidInput)
	}
	if c.Watch.Dir == "" {
		return NewAppError("CONFIG_ERROR", "CONTRACTS_WATCH_DIR is required", ErrInvalidInput)
	}
	return nil
}
